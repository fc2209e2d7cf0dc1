// Package cache provides an optional Redis-backed verdict cache for the
// gateway. Evaluations are deterministic against loaded state, so a cached
// verdict is exactly what re-evaluation would produce until redeploy.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phishguard/phishguard/pkg/engine"
)

const keyPrefix = "phishguard:verdict:"

// VerdictCache stores verdicts keyed by normalized URL. A nil *VerdictCache
// is a valid no-op cache, so callers need no conditionals.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at addr. Empty addr returns a nil (disabled) cache.
func New(addr string, ttl time.Duration) *VerdictCache {
	if addr == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VerdictCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// NewWithClient wraps an existing client. Used by tests (miniredis).
func NewWithClient(client *redis.Client, ttl time.Duration) *VerdictCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VerdictCache{client: client, ttl: ttl}
}

// Get returns the cached verdict for url, or (nil, nil) on a miss.
func (c *VerdictCache) Get(ctx context.Context, url string) (*engine.Verdict, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, keyPrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var v engine.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		// Corrupt entry: treat as a miss rather than failing the request.
		return nil, nil
	}
	return &v, nil
}

// Put stores a verdict under its normalized URL.
func (c *VerdictCache) Put(ctx context.Context, url string, v *engine.Verdict) error {
	if c == nil || v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+url, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *VerdictCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
