package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rate_limit:"

// RateLimiter counts attempts per key in a fixed window. The counter key
// expires with the window, so an idle key costs nothing.
type RateLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
}

// NewRateLimiter scopes counters under rate_limit:<scope>:<key>.
func NewRateLimiter(client *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, scope: scope, limit: limit, window: window}
}

func (l *RateLimiter) Limit() int {
	return l.limit
}

// Allow records one attempt for key and reports whether it stays within
// the limit, how many attempts remain, and when the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	redisKey := rateLimitPrefix + l.scope + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, 0, err
	}
	// First attempt in the window starts its clock.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, 0, err
		}
	}

	retryAfter, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, 0, err
	}
	if retryAfter < 0 {
		retryAfter = l.window
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(l.limit), remaining, retryAfter, nil
}
