// Package data exposes the generic table pass-through the dashboard pages
// use: parameterized fetch/insert/update/delete over named backend tables.
// No validation or transformation is applied beyond identifier checks in
// the backend client; filters pass through verbatim. Every successful
// operation extends the caller's session, so activity keeps a session
// alive rather than a fixed window after login.
package data

import (
	"context"

	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/session"
)

// Service wraps the backend table API with session refresh side effects
type Service struct {
	backend  backend.Backend
	sessions *session.Store
}

func New(b backend.Backend, sessions *session.Store) *Service {
	return &Service{backend: b, sessions: sessions}
}

// Fetch returns rows from table matching the ANDed equality filters. With
// single set, exactly one row is returned (or backend.ErrNoRows).
func (s *Service) Fetch(ctx context.Context, token, table string, filters map[string]any, limit int, single bool) ([]map[string]any, error) {
	q := s.query(table, filters)
	if single {
		row, err := q.Single(ctx)
		if err != nil {
			return nil, err
		}
		s.sessions.RefreshSession(ctx, token)
		return []map[string]any{row}, nil
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows, err := q.Select(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions.RefreshSession(ctx, token)
	return rows, nil
}

// Insert adds one row and returns it as stored
func (s *Service) Insert(ctx context.Context, token, table string, row map[string]any) (map[string]any, error) {
	inserted, err := s.backend.Table(table).Insert(ctx, row)
	if err != nil {
		return nil, err
	}
	s.sessions.RefreshSession(ctx, token)
	return inserted, nil
}

// Update applies values to rows matching filters, returning the count
func (s *Service) Update(ctx context.Context, token, table string, filters, values map[string]any) (int64, error) {
	n, err := s.query(table, filters).Update(ctx, values)
	if err != nil {
		return 0, err
	}
	s.sessions.RefreshSession(ctx, token)
	return n, nil
}

// Delete removes rows matching filters, returning the count
func (s *Service) Delete(ctx context.Context, token, table string, filters map[string]any) (int64, error) {
	n, err := s.query(table, filters).Delete(ctx)
	if err != nil {
		return 0, err
	}
	s.sessions.RefreshSession(ctx, token)
	return n, nil
}

func (s *Service) query(table string, filters map[string]any) backend.Query {
	q := s.backend.Table(table)
	for col, val := range filters {
		q = q.Eq(col, val)
	}
	return q
}
