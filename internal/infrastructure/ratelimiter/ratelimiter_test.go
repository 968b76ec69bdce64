package ratelimiter

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(rate, burst int) (*RateLimiter, *time.Time) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := New(Options{MaxRatePerSecond: rate, MaxBurst: burst}).(*RateLimiter)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("client"), "request %d", i)
	}
	assert.False(t, rl.Allow("client"))
	assert.True(t, rl.Allow("other"))
}

func TestRateLimiter_RefillsAtRate(t *testing.T) {
	rl, clock := newTestLimiter(2, 2)

	require.True(t, rl.Allow("client"))
	require.True(t, rl.Allow("client"))
	require.False(t, rl.Allow("client"))

	// 2 tokens per second: 250ms is not enough for a whole token.
	*clock = clock.Add(250 * time.Millisecond)
	assert.False(t, rl.Allow("client"))

	// Partial progress is kept: another 250ms completes one token.
	*clock = clock.Add(250 * time.Millisecond)
	assert.True(t, rl.Allow("client"))
	assert.False(t, rl.Allow("client"))

	*clock = clock.Add(10 * time.Second)
	assert.Equal(t, 2, rl.Remaining("client"))
}

func TestRateLimiter_GetSourceKey(t *testing.T) {
	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", rl.GetSourceKey(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", rl.GetSourceKey(r))
}

func TestInMemory_Expiration(t *testing.T) {
	cache := NewInMemory()
	defer cache.Close()

	require.NoError(t, cache.SetWithExpiration("k", 5, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := cache.Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set("p", 7))
	v, err := cache.Get("p")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestInMemory_SweepStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cache := NewInMemoryContext(ctx, 5*time.Millisecond)
	defer cache.Close()

	require.NoError(t, cache.SetWithExpiration("k", 1, time.Millisecond))
	require.NoError(t, cache.Set("p", 2))
	require.Eventually(t, func() bool { return cache.size() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-cache.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper still running after cancel")
	}
}

func TestInMemory_CloseStopsSweep(t *testing.T) {
	cache := NewInMemoryContext(context.Background(), time.Hour)

	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
	select {
	case <-cache.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper still running after close")
	}
}
