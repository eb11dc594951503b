// Package limiter throttles lookups per client so a single browser can't
// burn through the upstream API quota.
package limiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evyataryagoni/iptracker/internal/logger"
)

// Limiter decides whether a client may perform another lookup
type Limiter interface {
	// Allow reports whether a request for key fits in the budget
	Allow(ctx context.Context, key string) bool

	// Close releases connections or background resources
	Close() error
}

// Config describes a limiter: Limit requests per Window for each key
type Config struct {
	Type   string // "memory" or "redis"
	Limit  int
	Window time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Logger *logger.Logger // optional
}

// New builds the limiter named by cfg.Type
func New(ctx context.Context, cfg Config) (Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.Window)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "memory", "":
		return NewMemoryLimiter(cfg.Limit, cfg.Window), nil

	case "redis":
		l, err := NewRedisLimiter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis limiter: %w", err)
		}
		return l, nil

	default:
		return nil, fmt.Errorf("unknown rate limiter type: %s (supported: 'memory', 'redis')", cfg.Type)
	}
}
