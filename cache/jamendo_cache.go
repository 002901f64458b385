package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// JamendoCache keeps proxied Jamendo results in Redis for a fixed TTL.
type JamendoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJamendoCache returns a cache with the given TTL.
func NewJamendoCache(client *redis.Client, ttl time.Duration) *JamendoCache {
	return &JamendoCache{client: client, ttl: ttl}
}

// Get returns the cached value, reporting false on a miss.
func (c *JamendoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key.
func (c *JamendoCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
