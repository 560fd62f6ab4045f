// Package backend is the client for the hosted backend-as-a-service: the
// managed Postgres the dashboard's tables live in, plus the auth provider
// that issues access tokens. The rest of the service depends only on the
// interfaces here; any hosted-Postgres-plus-auth provider with an
// equivalent client satisfies the contract.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrNoRows is the discriminated "no such row" condition. Callers must
	// match it with errors.Is, never by inspecting error text.
	ErrNoRows = errors.New("backend: no rows in result set")

	ErrInvalidToken  = errors.New("backend: invalid access token")
	ErrBadIdentifier = errors.New("backend: invalid identifier")
)

// AuthSession is the identity the hosted auth provider vouches for
type AuthSession struct {
	UserID string
	Email  string
}

// Auth validates access tokens issued by the hosted auth provider
type Auth interface {
	GetSession(ctx context.Context, accessToken string) (*AuthSession, error)
}

// Query is a single-table operation builder. Filters are exact-match
// equality, ANDed. Terminal methods execute the query.
type Query interface {
	Eq(column string, value any) Query
	Limit(n int) Query

	Select(ctx context.Context) ([]map[string]any, error)
	// Single returns exactly one row or ErrNoRows
	Single(ctx context.Context) (map[string]any, error)
	Insert(ctx context.Context, row map[string]any) (map[string]any, error)
	Update(ctx context.Context, values map[string]any) (int64, error)
	Delete(ctx context.Context) (int64, error)
}

// Backend is the full hosted-service surface the application consumes
type Backend interface {
	Auth() Auth
	Table(name string) Query
	Close()
}
