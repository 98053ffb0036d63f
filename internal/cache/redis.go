package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every cache entry in Redis
const KeyPrefix = "skybet:cache:"

// RedisCache stores serialized payloads in Redis with a per-entry TTL.
// Concurrent Set calls on one key are last-write-wins.
type RedisCache struct {
	redis *redis.Client
}

// NewRedisCache creates a Redis-backed cache
func NewRedisCache(redisClient *redis.Client) *RedisCache {
	return &RedisCache{
		redis: redisClient,
	}
}

// Get returns the payload stored under key. A missing or expired key is a
// miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.redis.Get(ctx, c.buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	return data, true, nil
}

// Set stores value under key for ttl
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.redis.Set(ctx, c.buildKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// buildKey creates the Redis key for a cache key
// Format: skybet:cache:{key}
func (c *RedisCache) buildKey(key string) string {
	return KeyPrefix + key
}
