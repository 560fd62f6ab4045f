// Package profile guarantees that an authenticated identity has exactly
// one backing row in the hosted profiles table: fetched when present,
// created with defaults when absent, cached for the session's lifetime.
package profile

import (
	"context"
	"errors"
	"time"

	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/models"
	"enclaveai-backend/internal/session"
)

var ErrMissingUserID = errors.New("profile: missing user id")

// Service performs profile synchronization against the hosted backend
type Service struct {
	backend  backend.Backend
	sessions *session.Store
	now      func() time.Time
}

func New(b backend.Backend, sessions *session.Store) *Service {
	return &Service{backend: b, sessions: sessions, now: time.Now}
}

// Ensure returns the profile for userID, creating it if it does not exist.
// With userID empty the identity is derived from the session record behind
// token. Only the discriminated not-found condition triggers creation; any
// other fetch error propagates without inserting. Idempotent: a second call
// for the same id returns the row the first call created.
func (s *Service) Ensure(ctx context.Context, token, userID, email string) (*models.ProfileResult, error) {
	if cached := s.sessions.CachedProfile(ctx, token); cached != nil {
		if userID == "" || cached.ID == userID {
			return &models.ProfileResult{Profile: cached, FromCache: true}, nil
		}
	}

	if userID == "" {
		rec := s.sessions.Record(ctx, token)
		if rec != nil {
			userID = rec.UserID
			if email == "" {
				email = rec.Email
			}
		}
	}
	if userID == "" {
		return nil, ErrMissingUserID
	}

	row, err := s.backend.Table("profiles").Eq("id", userID).Single(ctx)
	if err == nil {
		p := rowToProfile(row)
		s.sessions.CacheProfile(ctx, token, p)
		return &models.ProfileResult{Profile: p}, nil
	}
	if !errors.Is(err, backend.ErrNoRows) {
		return nil, err
	}

	now := s.now().UTC()
	inserted, err := s.backend.Table("profiles").Insert(ctx, map[string]any{
		"id":         userID,
		"email":      email,
		"role":       string(models.RoleUser),
		"status":     models.StatusActive,
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	p := rowToProfile(inserted)
	s.sessions.CacheProfile(ctx, token, p)
	return &models.ProfileResult{Profile: p}, nil
}

// rowToProfile maps a backend row onto the profile model, tolerating
// missing or oddly typed columns
func rowToProfile(row map[string]any) *models.Profile {
	p := &models.Profile{}
	if v, ok := row["id"].(string); ok {
		p.ID = v
	}
	if v, ok := row["email"].(string); ok {
		p.Email = v
	}
	if v, ok := row["role"].(string); ok {
		p.Role = models.Role(v)
	}
	if v, ok := row["status"].(string); ok {
		p.Status = v
	}
	if v, ok := row["created_at"].(time.Time); ok {
		p.CreatedAt = v
	}
	if v, ok := row["updated_at"].(time.Time); ok {
		p.UpdatedAt = v
	}
	return p
}
