package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per identifier and locks the identifier
// out once MaxAttempts is reached. A nil client disables limiting.
type LoginLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

func loginKey(identifier string) string {
	return fmt.Sprintf("rate_limit:login:%s", strings.ToLower(strings.TrimSpace(identifier)))
}

// Allowed reports whether another attempt may be made and, when locked,
// how long until the lock expires.
func (l *LoginLimiter) Allowed(ctx context.Context, identifier string) (bool, time.Duration, error) {
	if l == nil || l.rdb == nil || l.maxAttempts <= 0 {
		return true, 0, nil
	}

	key := loginKey(identifier)
	count, err := l.rdb.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to check login rate limit in redis: %w", err)
	}
	if count < l.maxAttempts {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read login rate limit ttl: %w", err)
	}
	if ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) error {
	if l == nil || l.rdb == nil || l.maxAttempts <= 0 {
		return nil
	}

	key := loginKey(identifier)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}
	if count == 1 {
		return l.rdb.Expire(ctx, key, l.window).Err()
	}
	return nil
}

func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, loginKey(identifier)).Err()
}

// RateLimitError is returned by callers once an identifier is locked out.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}
