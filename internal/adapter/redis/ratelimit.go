// Package redis implements a fixed-window rate limiter shared across instances.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Strob0t/StackForge/internal/middleware"
)

const keyPrefix = "stackforge:ratelimit:"

// Compile-time interface check.
var _ middleware.Limiter = (*RateLimiter)(nil)

// RateLimiter counts requests per key in fixed windows stored in Redis.
// Redis failures fail open.
type RateLimiter struct {
	client  *goredis.Client
	limit   int
	window  time.Duration
	timeout time.Duration
}

// NewRateLimiter connects to the Redis server at url (redis://...) and
// verifies the connection.
func NewRateLimiter(ctx context.Context, url string, limit int, window time.Duration) (*RateLimiter, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if window <= 0 {
		window = time.Minute
	}
	slog.Info("redis rate limiter ready", "addr", opts.Addr, "limit", limit, "window", window)
	return &RateLimiter{
		client:  client,
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
	}, nil
}

// Allow increments the counter for key and compares it against the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) middleware.RateDecision {
	if rl.limit <= 0 {
		return middleware.RateDecision{Allowed: true}
	}
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := keyPrefix + key
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("redis rate limiter error", "op", "incr", "error", err)
		return middleware.RateDecision{Allowed: true}
	}

	count := int(incr.Val())
	remaining := max(rl.limit-count, 0)
	if count <= rl.limit {
		return middleware.RateDecision{Allowed: true, Remaining: remaining}
	}

	retry := ttl.Val()
	if retry <= 0 {
		retry = rl.window
	}
	return middleware.RateDecision{RetryAfter: retry}
}

// Close releases the Redis connection pool.
func (rl *RateLimiter) Close() error {
	return rl.client.Close()
}
