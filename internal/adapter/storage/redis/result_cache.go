package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ResultCache implements ports.ResultCache using Redis. It fronts the
// durable idempotency records; a miss or error always falls through to the
// database, so it is purely a fast path.
type ResultCache struct {
	client *goredis.Client
	prefix string
}

// NewResultCache creates a new Redis-backed idempotent-result cache.
func NewResultCache(client *goredis.Client) *ResultCache {
	return &ResultCache{
		client: client,
		prefix: "idempotency:",
	}
}

// Get retrieves a cached response by idempotency key.
// Returns nil, nil if the key does not exist.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis result cache get: %w", err)
	}
	return val, nil
}

// Set stores a response in the cache with TTL.
func (c *ResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis result cache set: %w", err)
	}
	return nil
}
