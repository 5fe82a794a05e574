package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:login_failures:"

// LoginThrottle counts failed login attempts per email and source IP in
// Redis, locking the pair out for the remainder of the window once the
// limit is hit. Counters expire on their own; a successful login clears
// them early.
type LoginThrottle struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
}

// NewLoginThrottle creates a throttle allowing maxFailures failed attempts
// per window.
func NewLoginThrottle(client *redis.Client, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxFailures: maxFailures,
		window:      window,
	}
}

func (t *LoginThrottle) key(email, ip string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, email, ip)
}

// Blocked reports whether the email/IP pair has exhausted its failure
// budget for the current window.
func (t *LoginThrottle) Blocked(ctx context.Context, email, ip string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(email, ip)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis get login failures: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the failure counter, starting the lockout window
// on the first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, email, ip string) error {
	key := t.key(email, ip)

	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis incr login failures: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return fmt.Errorf("redis expire login failures: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email, ip string) error {
	if err := t.client.Del(ctx, t.key(email, ip)).Err(); err != nil {
		return fmt.Errorf("redis del login failures: %w", err)
	}
	return nil
}
