package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(2.0, 2) // 2 RPS, burst of 2

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "third request exceeds burst")
}

func TestLimiter_IndependentClients(t *testing.T) {
	limiter := NewLimiter(1.0, 1)

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
	assert.False(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("b"))
	assert.Equal(t, 2, limiter.Clients())
}

func TestLimiter_WaitTimeout(t *testing.T) {
	limiter := NewLimiter(0.1, 1) // one token every 10s
	limiter.Allow("a")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx, "a"))
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewLimiter(1.0, 10)

	var allowed, blocked int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if limiter.Allow("shared") {
					atomic.AddInt64(&allowed, 1)
				} else {
					atomic.AddInt64(&blocked, 1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowed+blocked)
	assert.GreaterOrEqual(t, allowed, int64(10))
	assert.Greater(t, blocked, int64(0))
}

func TestLimiter_SweepIdle(t *testing.T) {
	limiter := NewLimiter(5, 5)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	now = now.Add(10 * time.Minute)
	limiter.Allow("fresh")

	assert.Equal(t, 1, limiter.Sweep(5*time.Minute))
	assert.Equal(t, 1, limiter.Clients())

	_, ok := limiter.Stats("old")
	assert.False(t, ok)

	stats, ok := limiter.Stats("fresh")
	require.True(t, ok)
	assert.Equal(t, 5.0, stats.RPS)
	assert.Equal(t, 5, stats.Burst)
	assert.Equal(t, now, stats.LastSeen)
	assert.False(t, stats.IsThrottled())
}

func TestLimiterStats_RetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), LimiterStats{RPS: 2, TokensAvailable: 1.5}.RetryAfter())
	assert.Equal(t, 500*time.Millisecond, LimiterStats{RPS: 2, TokensAvailable: 0}.RetryAfter())
	assert.Equal(t, 250*time.Millisecond, LimiterStats{RPS: 2, TokensAvailable: 0.5}.RetryAfter())
	assert.Equal(t, time.Duration(0), LimiterStats{RPS: 0, TokensAvailable: 0}.RetryAfter())

	limiter := NewLimiter(0.5, 1)
	require.True(t, limiter.Allow("client"))
	require.False(t, limiter.Allow("client"))
	stats, ok := limiter.Stats("client")
	require.True(t, ok)
	assert.True(t, stats.IsThrottled())
	assert.InDelta(t, 2*time.Second, stats.RetryAfter(), float64(100*time.Millisecond))
}
