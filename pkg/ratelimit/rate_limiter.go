package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter provides rate limiting functionality
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter implements token bucket rate limiting. Paraphrase
// submissions are the expensive operation here: each one opens an
// upstream streaming run.
type TokenBucketLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate time.Duration
	cleanupInt time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucketLimiter creates a new token bucket rate limiter
func NewTokenBucketLimiter(maxTokens int, refillRate time.Duration) *TokenBucketLimiter {
	limiter := &TokenBucketLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		cleanupInt: 5 * time.Minute,
	}

	go limiter.cleanup()

	return limiter
}

// Allow checks if a request is allowed
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	maxTokens := l.maxTokens
	refillRate := l.refillRate
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     maxTokens,
			lastRefill: time.Now(),
		}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Refill tokens based on time elapsed
	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	tokensToAdd := int(elapsed / refillRate)

	if tokensToAdd > 0 {
		b.tokens = min(b.tokens+tokensToAdd, maxTokens)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}

	return false, nil
}

// SetRate adjusts the bucket capacity and refill interval. Existing
// buckets keep their tokens and converge on the next refill.
func (l *TokenBucketLimiter) SetRate(maxTokens int, refillRate time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maxTokens = maxTokens
	l.refillRate = refillRate
}

// Reset resets the rate limit for a key
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.buckets, key)
	return nil
}

// cleanup removes stale buckets periodically
func (l *TokenBucketLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInt)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, b := range l.buckets {
			b.mu.Lock()
			if now.Sub(b.lastRefill) > time.Hour {
				delete(l.buckets, key)
			}
			b.mu.Unlock()
		}
		l.mu.Unlock()
	}
}

// OwnerRateLimiter wraps a limiter keyed by the owning user, applied to
// the submit and re-tag endpoints.
type OwnerRateLimiter struct {
	limiter Limiter
}

// NewOwnerRateLimiter creates an owner-keyed token bucket limiter.
func NewOwnerRateLimiter(submissionsPerMinute int) *OwnerRateLimiter {
	return &OwnerRateLimiter{
		limiter: NewTokenBucketLimiter(submissionsPerMinute, time.Minute/time.Duration(maxInt(submissionsPerMinute, 1))),
	}
}

// Allow checks if a submission from an owner is allowed
func (l *OwnerRateLimiter) Allow(ctx context.Context, ownerID string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("owner:%s", ownerID))
}

// Reset clears an owner's bucket
func (l *OwnerRateLimiter) Reset(ctx context.Context, ownerID string) error {
	return l.limiter.Reset(ctx, fmt.Sprintf("owner:%s", ownerID))
}

// SetRate adjusts the per-minute submission budget, applied when the
// dynamic config file changes.
func (l *OwnerRateLimiter) SetRate(submissionsPerMinute int) {
	if tb, ok := l.limiter.(*TokenBucketLimiter); ok {
		tb.SetRate(submissionsPerMinute, time.Minute/time.Duration(maxInt(submissionsPerMinute, 1)))
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
