package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/lyceum-app/lyceum/testing"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, nil), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	limit := Limit{Window: time.Minute, Max: 10}

	for i := 1; i <= 10; i++ {
		res := limiter.Allow(context.Background(), "user-1", "student.create", limit)
		require.True(t, res.Allowed, "call %d should pass", i)
		assert.Equal(t, 10-i, res.Remaining)
		assert.Equal(t, 10, res.Limit)
	}

	res := limiter.Allow(context.Background(), "user-1", "student.create", limit)
	assert.False(t, res.Allowed, "11th call in the window must be rejected")
	assert.Equal(t, 0, res.Remaining)
}

func TestSeparateIdentitiesDoNotShareQuota(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	limit := Limit{Window: time.Minute, Max: 1}

	require.True(t, limiter.Allow(context.Background(), "user-1", "login", limit).Allowed)
	assert.False(t, limiter.Allow(context.Background(), "user-1", "login", limit).Allowed)
	assert.True(t, limiter.Allow(context.Background(), "user-2", "login", limit).Allowed)
}

func TestSeparateActionsDoNotShareQuota(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	limit := Limit{Window: time.Minute, Max: 1}

	require.True(t, limiter.Allow(context.Background(), "user-1", "a", limit).Allowed)
	assert.False(t, limiter.Allow(context.Background(), "user-1", "a", limit).Allowed)
	assert.True(t, limiter.Allow(context.Background(), "user-1", "b", limit).Allowed)
}

func TestNextWindowResetsQuota(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	limit := Limit{Window: time.Minute, Max: 1}

	base := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	require.True(t, limiter.Allow(context.Background(), "user-1", "x", limit).Allowed)
	require.False(t, limiter.Allow(context.Background(), "user-1", "x", limit).Allowed)

	limiter.now = func() time.Time { return base.Add(time.Minute) }
	res := limiter.Allow(context.Background(), "user-1", "x", limit)
	assert.True(t, res.Allowed, "a fresh window slot starts a fresh count")
}

func TestResetIsNextWindowBoundary(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	limit := Limit{Window: time.Minute, Max: 5}

	at := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return at }

	res := limiter.Allow(context.Background(), "user-1", "x", limit)
	want := at.Truncate(time.Minute).Add(time.Minute).Unix()
	assert.Equal(t, want, res.Reset)
}

func TestCounterKeyExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	limit := Limit{Window: time.Minute, Max: 10}

	limiter.Allow(context.Background(), "user-1", "x", limit)
	require.Len(t, mr.Keys(), 1)

	mr.FastForward(limit.Window + 2*time.Second)
	assert.Empty(t, mr.Keys(), "stale window counters must self-expire")
}

func TestFailsOpenWhenStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := New(client, nil)
	mr.Close()

	res := limiter.Allow(context.Background(), "user-1", "x", Limit{Window: time.Minute, Max: 1})
	assert.True(t, res.Allowed, "store outage must not block traffic")
}
