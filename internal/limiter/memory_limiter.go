package limiter

import (
	"context"
	"sync"
	"time"
)

// idleBucketTTL is how long an untouched bucket is kept
const idleBucketTTL = 5 * time.Minute

// tokenBucket holds up to capacity tokens refilled at rate per second.
// A full bucket lets a client burst its whole window budget at once.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	rate       float64
	lastRefill time.Time
}

func newTokenBucket(capacity, rate float64, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		rate:       rate,
		lastRefill: now,
	}
}

func (b *tokenBucket) take(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+elapsed*b.rate, b.capacity)
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *tokenBucket) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRefill
}

// MemoryLimiter keeps one token bucket per key in process memory.
// Suitable for a single server instance.
type MemoryLimiter struct {
	buckets  sync.Map // key -> *tokenBucket
	capacity float64
	rate     float64
	now      func() time.Time

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

// NewMemoryLimiter allows limit requests per window for every key
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		capacity:    float64(max(limit, 1)),
		rate:        float64(limit) / window.Seconds(),
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()
	allowed := l.bucket(key, now).take(now)
	l.maybeCleanup(now)
	return allowed
}

func (l *MemoryLimiter) bucket(key string, now time.Time) *tokenBucket {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*tokenBucket)
	}
	actual, _ := l.buckets.LoadOrStore(key, newTokenBucket(l.capacity, l.rate, now))
	return actual.(*tokenBucket)
}

// maybeCleanup drops idle buckets at most once per idleBucketTTL
func (l *MemoryLimiter) maybeCleanup(now time.Time) {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if now.Sub(l.lastCleanup) < idleBucketTTL {
		return
	}

	threshold := now.Add(-idleBucketTTL)
	l.buckets.Range(func(key, value any) bool {
		if value.(*tokenBucket).idleSince().Before(threshold) {
			l.buckets.Delete(key)
		}
		return true
	})

	l.lastCleanup = now
}

// Len returns the number of tracked keys
func (l *MemoryLimiter) Len() int {
	n := 0
	l.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close implements Limiter. Nothing to release.
func (l *MemoryLimiter) Close() error {
	return nil
}
