// Package session owns the lifecycle of authenticated sessions: a rolling
// expiry window extended on activity, an explicit logged-in flag, and a
// time-boxed emergency override that outranks both. Validity is evaluated
// strictly in that priority order: emergency override, then the explicit
// flag, then implicit expiry. The override path must survive states where
// the regular flag is inconsistent, so the ordering is load-bearing.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"enclaveai-backend/internal/models"
	"enclaveai-backend/internal/storage"
)

const (
	// DefaultDuration is the rolling session window when none is configured
	DefaultDuration = 8 * time.Hour

	// OverrideWindow is how long an emergency grant stays valid
	OverrideWindow = time.Hour

	sessionKeyPrefix  = "session:"
	overrideKeyPrefix = "override:"
	profileKeyPrefix  = "profile:"
)

var ErrSessionConflict = errors.New("session belongs to another user")

// Config holds session store dependencies
type Config struct {
	Durable        storage.KV // session records and override grants
	Volatile       storage.KV // per-process profile cache
	Duration       time.Duration
	OverrideSecret []byte
}

// Store answers "is this token a currently valid session" without touching
// the hosted backend, and keeps that answer consistent with the rolling
// window. Storage failures never propagate out of the read paths: they
// degrade to "not logged in" / no-op, matching the safe default.
type Store struct {
	durable        storage.KV
	volatile       storage.KV
	duration       time.Duration
	overrideSecret []byte
	now            func() time.Time
}

// New creates a session store
func New(cfg Config) *Store {
	d := cfg.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	return &Store{
		durable:        cfg.Durable,
		volatile:       cfg.Volatile,
		duration:       d,
		overrideSecret: cfg.OverrideSecret,
		now:            time.Now,
	}
}

// MarkLoggedIn records a fresh session for token: login time now, expiry
// now + duration. Reports failure if the store is unavailable; nothing is
// partially written in that case.
func (s *Store) MarkLoggedIn(ctx context.Context, token, userID, email string) (*models.SessionRecord, error) {
	now := s.now()
	rec := &models.SessionRecord{
		UserID:    userID,
		Email:     email,
		LoggedIn:  true,
		LoginAt:   now,
		ExpiresAt: now.Add(s.duration),
		Duration:  s.duration,
	}
	if err := s.putRecord(ctx, token, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkLoggedOut clears the session record, override grant, and cached
// profile for token. Idempotent; storage errors are swallowed.
func (s *Store) MarkLoggedOut(ctx context.Context, token string) {
	s.durable.Delete(ctx, sessionKeyPrefix+token)
	s.durable.Delete(ctx, overrideKeyPrefix+token)
	if s.volatile != nil {
		s.volatile.Delete(ctx, profileKeyPrefix+token)
	}
}

// IsLoggedIn evaluates session validity for token. The priority chain is
// deliberate and must hold exactly:
//  1. a verified, unexpired emergency override wins (and self-heals the
//     regular flag if it disagrees); an expired override is cleared
//  2. no stored user id: false
//  3. logged-in flag not exactly true: false
//  4. login older than the session duration: clear the session, false
//  5. otherwise true
func (s *Store) IsLoggedIn(ctx context.Context, token string) bool {
	rec := s.getRecord(ctx, token)

	if g := s.getOverride(ctx, token); g != nil {
		if s.verifyGrant(g) {
			if s.now().Sub(g.SetAt) < OverrideWindow {
				// Override is only honored when a user id is present
				if rec != nil && rec.UserID != "" {
					if !rec.LoggedIn {
						rec.LoggedIn = true
						s.putRecord(ctx, token, rec)
					}
					return true
				}
			} else {
				s.durable.Delete(ctx, overrideKeyPrefix+token)
			}
		}
		// An unverifiable grant behaves exactly like an absent one
	}

	if rec == nil || rec.UserID == "" {
		return false
	}
	if !rec.LoggedIn {
		return false
	}
	if !rec.LoginAt.IsZero() && s.now().Sub(rec.LoginAt) > s.recordDuration(rec) {
		s.clearSession(ctx, token)
		return false
	}
	return true
}

// RefreshSession extends the rolling window: login and expiry are rewritten
// to now / now + duration. A no-op with zero storage writes when the token
// is not currently logged in. Called on every successful authenticated data
// operation, so sessions extend on activity rather than expiring at a fixed
// point after login.
func (s *Store) RefreshSession(ctx context.Context, token string) {
	if !s.IsLoggedIn(ctx, token) {
		return
	}
	rec := s.getRecord(ctx, token)
	if rec == nil {
		return
	}
	now := s.now()
	rec.LoginAt = now
	rec.ExpiresAt = now.Add(s.recordDuration(rec))
	s.putRecord(ctx, token, rec)
}

// IsAdmin reports whether the cached profile for this session carries the
// admin role. It consults the profile cache, not the session record, and
// defaults to false on any absence or mismatch.
func (s *Store) IsAdmin(ctx context.Context, token string) bool {
	p := s.CachedProfile(ctx, token)
	return p != nil && p.IsAdmin()
}

// Record returns the raw session record for token, or nil. Callers that
// need validity must use IsLoggedIn; this accessor does not expire.
func (s *Store) Record(ctx context.Context, token string) *models.SessionRecord {
	return s.getRecord(ctx, token)
}

// CachedProfile returns the profile cached for this session. The cache is
// only trusted when the cached id matches the session's user id; the check
// lives here so no caller can forget it.
func (s *Store) CachedProfile(ctx context.Context, token string) *models.Profile {
	if s.volatile == nil {
		return nil
	}
	rec := s.getRecord(ctx, token)
	if rec == nil || rec.UserID == "" {
		return nil
	}
	val, err := s.volatile.Get(ctx, profileKeyPrefix+token)
	if err != nil || val == "" {
		return nil
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil
	}
	if p.ID != rec.UserID {
		return nil
	}
	return &p
}

// CacheProfile stores a profile for the lifetime of this session. Failures
// are swallowed: the cache is an optimization, not a source of truth.
func (s *Store) CacheProfile(ctx context.Context, token string, p *models.Profile) {
	if s.volatile == nil || p == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.volatile.Set(ctx, profileKeyPrefix+token, string(b), 0)
}

func (s *Store) recordDuration(rec *models.SessionRecord) time.Duration {
	if rec.Duration > 0 {
		return rec.Duration
	}
	return s.duration
}

func (s *Store) getRecord(ctx context.Context, token string) *models.SessionRecord {
	val, err := s.durable.Get(ctx, sessionKeyPrefix+token)
	if err != nil || val == "" {
		return nil
	}
	var rec models.SessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil
	}
	return &rec
}

func (s *Store) putRecord(ctx context.Context, token string, rec *models.SessionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// Keep the row long enough for a late emergency grant, then let the
	// store reclaim it; logical expiry is decided in IsLoggedIn.
	ttl := s.recordDuration(rec) + OverrideWindow
	return s.durable.Set(ctx, sessionKeyPrefix+token, string(b), ttl)
}

func (s *Store) clearSession(ctx context.Context, token string) {
	s.durable.Delete(ctx, sessionKeyPrefix+token)
	if s.volatile != nil {
		s.volatile.Delete(ctx, profileKeyPrefix+token)
	}
}
