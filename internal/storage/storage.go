package storage

import (
	"context"
	"time"
)

// KV is the minimal key/value surface the session layer needs. Get returns
// the empty string for absent or expired keys rather than an error.
// Implementations: sqlite.Client and redis.Client (durable, session records
// survive restarts), memory.Client (volatile, profile cache).
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
