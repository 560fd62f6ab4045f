package memory

import (
	"context"
	"sync"
	"time"
)

type item struct {
	val string
	exp time.Time // zero means no expiry
}

// Client is an in-process KV store with per-key TTL. It backs the volatile
// profile cache and stands in for the durable stores in tests.
type Client struct {
	mu    sync.RWMutex
	items map[string]item
}

func New() *Client {
	return &Client{items: make(map[string]item)}
}

func (c *Client) Close() error { return nil }

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	if !ok {
		return "", nil
	}
	if !v.exp.IsZero() && time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := item{val: value}
	if ttl > 0 {
		it.exp = time.Now().Add(ttl)
	}
	c.items[key] = it
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Flush drops all keys (used between tests)
func (c *Client) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item)
}
