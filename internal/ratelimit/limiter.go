// Package ratelimit limits inbound proxy traffic per client address.
//
// Two stores are provided: an in-process token bucket built on
// golang.org/x/time/rate, and a Redis fixed window shared by every
// replica of the proxy.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Allow consumes one unit for key.
	Allow(ctx context.Context, key string) (*Result, error)

	// Store names the backing store, used as a metric label.
	Store() string

	// Close releases background resources.
	Close() error
}

// Result represents the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed.
	Limit int

	// Remaining is the number of requests remaining in the current window.
	Remaining int

	// RetryAfter is the duration to wait before retrying (when not allowed).
	RetryAfter time.Duration
}

// Option configures a limiter built by New.
type Option func(*options)

type options struct {
	logger observability.Logger
	client redis.UniversalClient
	now    func() time.Time
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRedisClient supplies an existing Redis client instead of dialing
// the configured address.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New builds the limiter selected by cfg.Store.
func New(cfg config.RateLimitConfig, opts ...Option) (Limiter, error) {
	o := &options{
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	window := cfg.Window.OrDefault(config.DefaultRateLimitWindow)

	switch cfg.Store {
	case config.RateLimitStoreMemory, "":
		return NewMemoryLimiter(cfg.Requests, window, cfg.Burst, o.logger), nil
	case config.RateLimitStoreRedis:
		client := o.client
		if client == nil {
			client = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}
		return NewRedisLimiter(client, RedisLimiterConfig{
			Requests:  cfg.Requests,
			Window:    window,
			KeyPrefix: cfg.Redis.KeyPrefix,
			Now:       o.now,
		}, o.logger), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", cfg.Store)
	}
}
