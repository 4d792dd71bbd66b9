package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a fixed-window store backed by Redis, for deployments with
// more than one API instance. Redis TTLs provide the window reset.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "ratelimit:"}
}

// Incr implements Store. INCR and the initial EXPIRE run in one pipeline;
// the TTL is only set when the key is new, so the window does not slide.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit store unavailable: %w", err)
	}

	reset := ttl.Val()
	if reset < 0 {
		reset = window
	}

	return incr.Val(), reset, nil
}

// Close implements Store. The client is shared and closed by its owner.
func (s *RedisStore) Close() error {
	return nil
}
