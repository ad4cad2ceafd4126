package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskhive/deskhive/internal/shared"
)

// Throttle rate limits login attempts per email and per source IP using a
// fixed redis window. The counter only grows on failed attempts; a successful
// login clears it.
type Throttle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewThrottle constructs a Throttle.
func NewThrottle(client *redis.Client, limit int, window time.Duration) *Throttle {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &Throttle{client: client, limit: limit, window: window}
}

func throttleKeys(email, ip string) []string {
	keys := make([]string, 0, 2)
	if email != "" {
		keys = append(keys, "login_attempts:email:"+email)
	}
	if ip != "" {
		keys = append(keys, "login_attempts:ip:"+ip)
	}
	return keys
}

// Allow reports whether another attempt is permitted right now.
func (t *Throttle) Allow(ctx context.Context, email, ip string) error {
	if t == nil || t.client == nil {
		return nil
	}
	for _, key := range throttleKeys(email, ip) {
		n, err := t.client.Get(ctx, key).Int()
		if err != nil && err != redis.Nil {
			// Redis trouble must not lock everyone out.
			return nil
		}
		if n >= t.limit {
			return shared.ErrTooManyAttempts
		}
	}
	return nil
}

// RecordFailure bumps the counters after a rejected credential pair.
func (t *Throttle) RecordFailure(ctx context.Context, email, ip string) {
	if t == nil || t.client == nil {
		return
	}
	for _, key := range throttleKeys(email, ip) {
		n, err := t.client.Incr(ctx, key).Result()
		if err != nil {
			continue
		}
		if n == 1 {
			t.client.Expire(ctx, key, t.window)
		}
	}
}

// Reset clears the counters after a successful login.
func (t *Throttle) Reset(ctx context.Context, email, ip string) {
	if t == nil || t.client == nil {
		return
	}
	keys := throttleKeys(email, ip)
	if len(keys) > 0 {
		t.client.Del(ctx, keys...)
	}
}
