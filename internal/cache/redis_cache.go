// Package cache provides a Redis-backed cache for rendered schedule
// responses. It sits in front of the full-matrix read path so frequent
// pollers do not hit Postgres on every tick.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports that a key is absent or expired.
var ErrMiss = errors.New("cache miss")

const defaultTTL = 5 * time.Second

// RedisCache stores serialized payloads under a shared key prefix with a
// fixed TTL. Every write path invalidates; the TTL is a backstop.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection before returning.
func New(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{
		client: client,
		prefix: "schedule:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(name string) string {
	return c.prefix + name
}

// Get returns the cached payload for a key, or ErrMiss.
func (c *RedisCache) Get(ctx context.Context, name string) ([]byte, error) {
	payload, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", name, err)
	}
	return payload, nil
}

// Set stores a payload under a key with the cache's TTL.
func (c *RedisCache) Set(ctx context.Context, name string, payload []byte) error {
	if err := c.client.Set(ctx, c.key(name), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", name, err)
	}
	return nil
}

// Invalidate drops every key under the cache's prefix. Edits call this so
// the next read rebuilds from the store.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidate %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache invalidate scan: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
