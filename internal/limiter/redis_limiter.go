package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/evyataryagoni/iptracker/internal/logger"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces limiter counters in a shared Redis
const keyPrefix = "iptracker:ratelimit:"

// incrWithExpiry bumps the window counter and arms its expiry on first use
var incrWithExpiry = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter counts requests per key in fixed windows stored in Redis,
// so every server instance shares the same budget.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewRedisLimiter connects to Redis and checks the connection
func NewRedisLimiter(ctx context.Context, cfg Config) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}

	return NewRedisLimiterFromClient(client, cfg.Limit, cfg.Window, cfg.Logger), nil
}

// NewRedisLimiterFromClient uses an existing client. The limiter owns it
// afterwards and closes it on Close.
func NewRedisLimiterFromClient(client *redis.Client, limit int, window time.Duration, log *logger.Logger) *RedisLimiter {
	if log == nil {
		log = logger.NewNop()
	}
	window = max(window, time.Millisecond)
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: log.WithComponent("RedisLimiter"),
		now:    time.Now,
	}
}

// Allow implements Limiter. Redis failures let the request through.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	slot := l.now().UnixMilli() / l.window.Milliseconds()
	redisKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, slot)

	count, err := incrWithExpiry.Run(ctx, l.client, []string{redisKey}, (2 * l.window).Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
		return true
	}

	return count <= l.limit
}

// Close closes the Redis connection
func (l *RedisLimiter) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}
