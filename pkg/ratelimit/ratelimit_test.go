package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewMemoryLimiter(3, time.Minute, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "Request %d should be allowed", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 20*time.Second, d.RetryAfter)

	// 다른 키는 독립적
	d, _ = limiter.Allow(ctx, "user:2")
	assert.True(t, d.Allowed)

	// 3회/분 = 20초마다 한 개
	clock.Advance(20 * time.Second)
	d, _ = limiter.Allow(ctx, "user:1")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "user:1")
	assert.False(t, d.Allowed)
}

func TestMemoryLimiter_RefillIsCapped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewMemoryLimiter(2, time.Second, clock)
	ctx := context.Background()

	limiter.Allow(ctx, "k")
	clock.Advance(time.Hour)

	allowed := 0
	for i := 0; i < 5; i++ {
		if d, _ := limiter.Allow(ctx, "k"); d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestMemoryLimiter_CleanupAndReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewMemoryLimiter(1, time.Minute, clock)
	ctx := context.Background()

	limiter.Allow(ctx, "a")
	limiter.Allow(ctx, "b")
	assert.Equal(t, 2, limiter.Size())

	clock.Advance(2 * time.Minute)
	limiter.Allow(ctx, "c")
	assert.Equal(t, 1, limiter.Size(), "idle buckets are dropped")

	d, _ := limiter.Allow(ctx, "c")
	assert.False(t, d.Allowed)
	limiter.Reset("c")
	d, _ = limiter.Allow(ctx, "c")
	assert.True(t, d.Allowed)
}
