package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 200 * time.Millisecond

// RedisCache shares entries between processes. Values are stored as JSON
// under namespace:key. Redis failures degrade to cache misses.
type RedisCache[T any] struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

func NewRedisCache[T any](client redis.UniversalClient, namespace string, ttl time.Duration, logger *slog.Logger) *RedisCache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache[T]{client: client, namespace: namespace, ttl: ttl, logger: logger}
}

func (c *RedisCache[T]) key(k string) string {
	return c.namespace + ":" + k
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (c *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := opContext()
	defer cancel()

	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis cache read failed", "key", key, "error", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (c *RedisCache[T]) Set(key string, data T) {
	if c.ttl <= 0 {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("Cache entry not encodable", "key", key, "error", err)
		return
	}
	ctx, cancel := opContext()
	defer cancel()
	if err := c.client.Set(ctx, c.key(key), b, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(key string) {
	ctx, cancel := opContext()
	defer cancel()
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn("Redis cache delete failed", "key", key, "error", err)
	}
}

// DeletePrefix scans the namespace for matching keys and removes them.
func (c *RedisCache[T]) DeletePrefix(prefix string) int {
	keys := c.scan(c.key(prefix) + "*")
	if len(keys) == 0 {
		return 0
	}
	ctx, cancel := opContext()
	defer cancel()
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Redis cache prefix delete failed", "prefix", prefix, "error", err)
		return 0
	}
	return int(n)
}

// Size counts the keys of the namespace. Redis expires entries itself.
func (c *RedisCache[T]) Size() int {
	return len(c.scan(c.key("*")))
}

func (c *RedisCache[T]) scan(pattern string) []string {
	ctx, cancel := opContext()
	defer cancel()

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Redis cache scan failed", "pattern", pattern, "error", err)
	}
	return keys
}
