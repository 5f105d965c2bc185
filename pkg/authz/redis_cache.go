package authz

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "brightclass:authz:"

// RedisCache is a decision cache shared between instances. Entries expire
// server-side; a Redis error on the read path degrades to a cache miss, so
// the worst case is an extra store query.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed decision cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached decision for key if present and unexpired.
func (c *RedisCache) Get(ctx context.Context, key string) (bool, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Set stores the decision with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, allowed bool) {
	val := "0"
	if allowed {
		val = "1"
	}
	_ = c.client.Set(ctx, redisKeyPrefix+key, val, c.ttl).Err()
}

// ClearUser deletes every entry for one user.
func (c *RedisCache) ClearUser(ctx context.Context, userID string) {
	c.deleteMatching(ctx, redisKeyPrefix+userKeyPrefix(userID)+"*")
}

// Clear deletes every decision entry this service owns.
func (c *RedisCache) Clear(ctx context.Context) {
	c.deleteMatching(ctx, redisKeyPrefix+"*")
}

// Len counts live entries. Intended for tests and diagnostics, not hot paths.
func (c *RedisCache) Len(ctx context.Context) int {
	n := 0
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}

func (c *RedisCache) deleteMatching(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}
