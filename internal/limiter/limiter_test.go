package limiter

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// TestMemoryLimiter_BasicRateLimit tests that the window budget is enforced and refilled
func TestMemoryLimiter_BasicRateLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(5, 10*time.Second)
	limiter.now = clock.Now
	defer limiter.Close()

	ctx := context.Background()
	ip := "192.168.1.1"

	for i := 0; i < 5; i++ {
		if !limiter.Allow(ctx, ip) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow(ctx, ip) {
		t.Error("Request 6 should be rate limited")
	}

	// 5 per 10s refills one token every 2s
	clock.Advance(2 * time.Second)

	if !limiter.Allow(ctx, ip) {
		t.Error("Request should be allowed after refill")
	}
	if limiter.Allow(ctx, ip) {
		t.Error("Only one token should have been refilled")
	}
}

// TestMemoryLimiter_PerKeyIsolation tests that different clients have separate budgets
func TestMemoryLimiter_PerKeyIsolation(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(3, time.Minute)
	limiter.now = clock.Now

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "client-1") {
			t.Errorf("Request %d for client-1 should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "client-1") {
		t.Error("client-1 should be rate limited")
	}

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "client-2") {
			t.Errorf("Request %d for client-2 should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "client-2") {
		t.Error("client-2 should be rate limited")
	}
}

func TestMemoryLimiter_RefillCapsAtLimit(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(2, time.Second)
	limiter.now = clock.Now

	ctx := context.Background()
	limiter.Allow(ctx, "ip")

	clock.Advance(time.Hour)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow(ctx, "ip") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("expected burst capped at 2, got %d", allowed)
	}
}

// TestMemoryLimiter_Concurrency tests thread safety
func TestMemoryLimiter_Concurrency(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(100, time.Minute)
	limiter.now = clock.Now

	ctx := context.Background()
	allowedCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(ctx, "192.168.1.1") {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedCount != 100 {
		t.Errorf("Expected 100 allowed requests, got %d", allowedCount)
	}
}

func TestMemoryLimiter_CleansUpIdleBuckets(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(1, time.Second)
	limiter.now = clock.Now
	limiter.lastCleanup = clock.Now()

	ctx := context.Background()
	limiter.Allow(ctx, "idle")

	clock.Advance(idleBucketTTL + time.Second)
	limiter.Allow(ctx, "active")

	if got := limiter.Len(); got != 1 {
		t.Errorf("expected idle bucket to be dropped, %d buckets left", got)
	}
}

func TestMemoryLimiter_Close(t *testing.T) {
	limiter := NewMemoryLimiter(10, time.Second)

	if err := limiter.Close(); err != nil {
		t.Errorf("Close should not return error, got: %v", err)
	}
}

func TestLimiterInterface(t *testing.T) {
	var _ Limiter = (*MemoryLimiter)(nil)
	var _ Limiter = (*RedisLimiter)(nil)
	var _ Limiter = (*MockLimiter)(nil)
}

func newRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clock := newFakeClock()
	limiter := NewRedisLimiterFromClient(client, limit, window, nil)
	limiter.now = clock.Now
	t.Cleanup(func() { limiter.Close() })

	return limiter, mr, clock
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	limiter, _, clock := newRedisLimiter(t, 3, 10*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "10.0.0.1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "10.0.0.1") {
		t.Error("Request 4 should be rate limited")
	}
	if !limiter.Allow(ctx, "10.0.0.2") {
		t.Error("Another client should have its own budget")
	}

	clock.Advance(10 * time.Second)

	if !limiter.Allow(ctx, "10.0.0.1") {
		t.Error("Request should be allowed in the next window")
	}
}

func TestRedisLimiter_SetsExpiry(t *testing.T) {
	limiter, mr, clock := newRedisLimiter(t, 3, 10*time.Second)

	limiter.Allow(context.Background(), "10.0.0.1")

	slot := clock.Now().UnixMilli() / (10 * time.Second).Milliseconds()
	key := keyPrefix + "10.0.0.1:" + strconv.FormatInt(slot, 10)

	if !mr.Exists(key) {
		t.Fatalf("expected counter key %s", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > 20*time.Second {
		t.Errorf("unexpected TTL %s", ttl)
	}
}

// TestRedisLimiter_FailsOpen tests that a Redis outage doesn't block lookups
func TestRedisLimiter_FailsOpen(t *testing.T) {
	limiter, mr, _ := newRedisLimiter(t, 1, time.Minute)
	mr.Close()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(context.Background(), "10.0.0.1") {
			t.Error("expected requests to be allowed while Redis is down")
		}
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"explicit memory type", Config{Type: "memory", Limit: 10, Window: time.Second}, false},
		{"uppercase memory type", Config{Type: "MEMORY", Limit: 10, Window: time.Second}, false},
		{"empty type defaults to memory", Config{Limit: 10, Window: time.Second}, false},
		{"redis", Config{Type: "redis", Limit: 10, Window: time.Second, RedisAddr: mr.Addr()}, false},
		{"invalid type", Config{Type: "invalid", Limit: 10, Window: time.Second}, true},
		{"zero limit", Config{Limit: 0, Window: time.Second}, true},
		{"zero window", Config{Limit: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer limiter.Close()

			if !limiter.Allow(context.Background(), "192.168.1.1") {
				t.Error("First request should be allowed")
			}
		})
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := New(ctx, Config{Type: "redis", Limit: 1, Window: time.Second, RedisAddr: addr}); err == nil {
		t.Error("expected connection error")
	}
}

func TestMockLimiter(t *testing.T) {
	m := NewMockLimiter(false)

	if m.Allow(context.Background(), "a") {
		t.Error("expected deny")
	}
	if calls := m.Calls(); len(calls) != 1 || calls[0] != "a" {
		t.Errorf("unexpected calls %v", calls)
	}
	m.Close()
	if !m.CloseCalled {
		t.Error("expected Close to be recorded")
	}
}

// BenchmarkMemoryLimiter_Allow benchmarks the Allow method
func BenchmarkMemoryLimiter_Allow(b *testing.B) {
	limiter := NewMemoryLimiter(1000000, time.Second)
	defer limiter.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Allow(ctx, "192.168.1.1")
	}
}

// BenchmarkMemoryLimiter_AllowParallel benchmarks parallel access
func BenchmarkMemoryLimiter_AllowParallel(b *testing.B) {
	limiter := NewMemoryLimiter(1000000, time.Second)
	defer limiter.Close()

	ctx := context.Background()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			limiter.Allow(ctx, "192.168.1.1")
		}
	})
}
