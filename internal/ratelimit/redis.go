package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// fixedWindowScript counts requests in the window containing now.
// Returns: allowed (0 or 1), remaining count, reset time in ms.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local window_start = math.floor(now / window_ms) * window_ms
	local window_key = key .. ':' .. window_start

	local count = tonumber(redis.call('GET', window_key) or '0')

	local allowed = 0
	if count < limit then
		count = redis.call('INCR', window_key)
		if count == 1 then
			redis.call('PEXPIRE', window_key, window_ms)
		end
		allowed = 1
	end

	return {allowed, limit - count, window_start + window_ms - now}
`)

// RedisLimiterConfig configures RedisLimiter.
type RedisLimiterConfig struct {
	Requests  int
	Window    time.Duration
	KeyPrefix string
	Now       func() time.Time
}

// RedisLimiter is a fixed-window limiter whose counters live in Redis,
// so every proxy replica shares one budget per client.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    RedisLimiterConfig
	logger observability.Logger
}

// NewRedisLimiter creates a limiter over an existing client. The limiter
// owns the client and closes it on Close.
func NewRedisLimiter(client redis.UniversalClient, cfg RedisLimiterConfig, logger observability.Logger) *RedisLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RedisLimiter{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Allow counts one request for key in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.cfg.Now().UnixMilli()

	raw, err := fixedWindowScript.Run(ctx, l.client,
		[]string{l.cfg.KeyPrefix + key},
		l.cfg.Requests, l.cfg.Window.Milliseconds(), now,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit script: %w", err)
	}

	return parseScriptResult(raw, l.cfg.Requests)
}

// parseScriptResult decodes [allowed, remaining, reset_ms].
func parseScriptResult(raw interface{}, limit int) (*Result, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected script result format: %v", raw)
	}

	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	resetMs, _ := values[2].(int64)

	if remaining < 0 {
		remaining = 0
	}

	res := &Result{
		Allowed:   allowed == 1,
		Limit:     limit,
		Remaining: int(remaining),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration(resetMs) * time.Millisecond
	}
	return res, nil
}

// Store returns "redis".
func (l *RedisLimiter) Store() string {
	return "redis"
}

// Close closes the Redis client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
