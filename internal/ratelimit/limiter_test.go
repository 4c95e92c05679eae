package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/cctv-console/internal/ratelimit"
)

func setup(t *testing.T) (*miniredis.Miniredis, *ratelimit.Limiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, ratelimit.NewLimiter(rdb, "salt")
}

func TestCheckRateLimit_Window(t *testing.T) {
	mr, l := setup(t)
	ctx := context.Background()
	cfg := ratelimit.LimitConfig{Rate: 2, Window: 10 * time.Second}
	key := ratelimit.Key(ratelimit.ScopeAction, "abc")

	d, err := l.CheckRateLimit(ctx, ratelimit.ScopeAction, key, cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, ratelimit.ScopeAction, d.Scope)

	d, err = l.CheckRateLimit(ctx, ratelimit.ScopeAction, key, cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.CheckRateLimit(ctx, ratelimit.ScopeAction, key, cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 10, d.RetryAfter)

	mr.FastForward(11 * time.Second)

	d, err = l.CheckRateLimit(ctx, ratelimit.ScopeAction, key, cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckRateLimit_RedisDown(t *testing.T) {
	mr, l := setup(t)
	mr.Close()

	_, err := l.CheckRateLimit(context.Background(), ratelimit.ScopeIP, "rl:ip:x", ratelimit.LimitConfig{Rate: 1, Window: time.Second})
	assert.ErrorIs(t, err, ratelimit.ErrRedisUnavailable)
}

func TestCheckRateLimit_InvalidConfig(t *testing.T) {
	_, l := setup(t)

	_, err := l.CheckRateLimit(context.Background(), ratelimit.ScopeIP, "rl:ip:x", ratelimit.LimitConfig{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ratelimit.ErrRedisUnavailable)
}

func TestHashIPAndKey(t *testing.T) {
	_, l := setup(t)

	h := l.HashIP("10.0.0.1")
	assert.Len(t, h, 64)
	assert.Equal(t, h, l.HashIP("10.0.0.1"))
	assert.NotEqual(t, h, l.HashIP("10.0.0.2"))
	assert.Equal(t, "rl:ip:"+h, ratelimit.Key(ratelimit.ScopeIP, h))
}
