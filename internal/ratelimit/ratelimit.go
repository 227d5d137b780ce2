// Package ratelimit provides Redis-based rate limiting for room events
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when a rate limit is exceeded
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter counts events per key in fixed windows stored in Redis. A nil
// Limiter, or one whose Redis is unreachable, allows everything.
type Limiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// New creates a limiter allowing limit events per key per window.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  client,
		limit:  limit,
		window: window,
		prefix: "scrawl:ratelimit",
	}
}

// Dial connects to the Redis server at addr and verifies it answers.
func Dial(ctx context.Context, addr string, limit int, window time.Duration) (*Limiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return New(client, limit, window), nil
}

// Allow records one event for key and returns ErrRateLimited once the
// key has exceeded its allowance for the current window.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if l == nil || l.redis == nil || l.limit <= 0 {
		return nil
	}

	k := fmt.Sprintf("%s:%s", l.prefix, key)

	// Use INCR to atomically increment the counter
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		// Fail-open on Redis errors to maintain availability
		return nil
	}

	if count == 1 {
		l.redis.Expire(ctx, k, l.window)
	}

	if int(count) > l.limit {
		return ErrRateLimited
	}

	return nil
}

// Close releases the Redis connection pool.
func (l *Limiter) Close() error {
	if l == nil || l.redis == nil {
		return nil
	}

	return l.redis.Close()
}
