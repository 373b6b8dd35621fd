package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThrottle(t *testing.T, limit int) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, limit, time.Minute), mr
}

func TestThrottleAllowsUnderLimit(t *testing.T) {
	throttle, _ := newThrottle(t, 3)
	ctx := context.Background()

	assert.True(t, throttle.Allow(ctx, "ana@example.com"))
	throttle.Record(ctx, "ana@example.com")
	throttle.Record(ctx, "ana@example.com")
	assert.True(t, throttle.Allow(ctx, "ana@example.com"))
}

func TestThrottleDeniesAtLimit(t *testing.T) {
	throttle, _ := newThrottle(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		throttle.Record(ctx, "ana@example.com")
	}
	assert.False(t, throttle.Allow(ctx, "ana@example.com"))

	// Other accounts are unaffected.
	assert.True(t, throttle.Allow(ctx, "bob@example.com"))
}

func TestThrottleKeyIsCaseInsensitive(t *testing.T) {
	throttle, _ := newThrottle(t, 1)
	ctx := context.Background()

	throttle.Record(ctx, "Ana@Example.com")
	assert.False(t, throttle.Allow(ctx, "ana@example.com"))
}

func TestThrottleResetClearsAttempts(t *testing.T) {
	throttle, _ := newThrottle(t, 1)
	ctx := context.Background()

	throttle.Record(ctx, "ana@example.com")
	require.False(t, throttle.Allow(ctx, "ana@example.com"))

	throttle.Reset(ctx, "ana@example.com")
	assert.True(t, throttle.Allow(ctx, "ana@example.com"))
}

func TestThrottleWindowExpires(t *testing.T) {
	throttle, mr := newThrottle(t, 1)
	ctx := context.Background()

	throttle.Record(ctx, "ana@example.com")
	require.False(t, throttle.Allow(ctx, "ana@example.com"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, throttle.Allow(ctx, "ana@example.com"))
}

func TestThrottleFailsOpenWithoutRedis(t *testing.T) {
	throttle := NewLoginThrottle(nil, 1, time.Minute)
	ctx := context.Background()

	throttle.Record(ctx, "ana@example.com")
	assert.True(t, throttle.Allow(ctx, "ana@example.com"))
}
