package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithTTL bumps the window counter and arms the expiry on first hit, in
// one atomic step so a crash between the two cannot leave an immortal key.
var incrWithTTL = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

const redisCallTimeout = 2 * time.Second

// FixedWindowLimiter counts requests per key in fixed Redis-backed windows.
// Counters are shared across replicas pointing at the same Redis.
type FixedWindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisFixedWindowLimiter connects a limiter to Redis. The prefix
// namespaces keys so several limiters can share one instance.
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("ratelimit: limit and window must be positive")
	}
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("ratelimit: redis addr required")
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "ainurse:ratelimit"
	}
	return &FixedWindowLimiter{
		client: redis.NewClient(&redis.Options{Addr: strings.TrimSpace(addr), Password: password}),
		prefix: prefix,
		limit:  limit,
		window: window,
	}, nil
}

// Allow reports whether key still has quota in the current window. Redis
// errors deny the request; throttled endpoints are credential-sensitive and
// must not open up when the backend is down.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()
	count, err := incrWithTTL.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return count <= int64(l.limit)
}

// Close releases the Redis connection pool.
func (l *FixedWindowLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
