package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed login attempts per email in Redis and blocks
// further attempts once the limit is reached within the window. It fails
// open: with no client configured, or Redis unreachable, logins proceed.
type LoginThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLoginThrottle constructs a throttle. A nil client disables throttling.
func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, limit: int64(limit), window: window}
}

func (t *LoginThrottle) key(email string) string {
	return "login:attempts:" + strings.ToLower(strings.TrimSpace(email))
}

// Allow reports whether a login attempt for the email may proceed.
func (t *LoginThrottle) Allow(ctx context.Context, email string) bool {
	if t == nil || t.client == nil {
		return true
	}
	count, err := t.client.Get(ctx, t.key(email)).Int64()
	if err != nil {
		return true
	}
	return count < t.limit
}

// Record counts one failed attempt, starting the window on the first.
func (t *LoginThrottle) Record(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	key := t.key(email)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	_, _ = pipe.Exec(ctx)
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	_ = t.client.Del(ctx, t.key(email)).Err()
}
