package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter implements fixed-window counting against Redis so multiple
// instances can share one admission budget per key. Redis errors are returned
// alongside an allowing Result; the caller logs and fails open.
type RedisCounter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisCounter creates a counter backed by the given Redis client.
func NewRedisCounter(client *redis.Client, limit int, window time.Duration) *RedisCounter {
	return &RedisCounter{client: client, limit: limit, window: window}
}

// Consume atomically increments the window counter for key. INCR plus
// EXPIRE NX keeps one TTL per window; the count resets when the key expires.
func (c *RedisCounter) Consume(ctx context.Context, key string) (Result, error) {
	rkey := "gatehouse:ratelimit:" + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.ExpireNX(ctx, rkey, c.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Allowed: true}, err
	}

	if incr.Val() <= int64(c.limit) {
		return Result{Allowed: true}, nil
	}

	ttl, err := c.client.TTL(ctx, rkey).Result()
	if err != nil || ttl < 0 {
		ttl = c.window
	}
	return Result{Allowed: false, RetryAfter: ttl}, nil
}
