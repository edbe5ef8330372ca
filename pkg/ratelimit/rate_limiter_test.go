package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_ExhaustsBudget(t *testing.T) {
	limiter := NewTokenBucketLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d within budget", i)
	}

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed, "budget exhausted")
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Hour)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "a")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "a")
	require.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "b")
	assert.True(t, allowed, "another key has its own bucket")
}

func TestTokenBucketLimiter_ResetRestoresBudget(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Hour)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "key")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "key")
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "key"))

	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_Refill(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 10*time.Millisecond)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "key")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "key")
	require.False(t, allowed)

	time.Sleep(25 * time.Millisecond)

	allowed, _ = limiter.Allow(ctx, "key")
	assert.True(t, allowed, "elapsed time refills the bucket")
}

func TestOwnerRateLimiter_SetRate(t *testing.T) {
	limiter := NewOwnerRateLimiter(1)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "user-1")
	require.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "user-1")
	require.False(t, allowed)

	// Raising the budget takes effect for fresh buckets immediately.
	limiter.SetRate(5)
	require.NoError(t, limiter.Reset(ctx, "user-1"))

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d after rate increase", i)
	}
	allowed, _ = limiter.Allow(ctx, "user-1")
	assert.False(t, allowed)
}
