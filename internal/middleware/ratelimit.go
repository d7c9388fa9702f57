package middleware

import (
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/vyrodovalexey/solitude/internal/observability"
	"github.com/vyrodovalexey/solitude/internal/ratelimit"
	"github.com/vyrodovalexey/solitude/internal/util"
)

// RateLimitOption configures the RateLimit middleware.
type RateLimitOption func(*rateLimitOptions)

type rateLimitOptions struct {
	logger  observability.Logger
	metrics *observability.Metrics
}

// WithRateLimitLogger sets the logger.
func WithRateLimitLogger(logger observability.Logger) RateLimitOption {
	return func(o *rateLimitOptions) {
		o.logger = logger
	}
}

// WithRateLimitMetrics records rejected requests.
func WithRateLimitMetrics(metrics *observability.Metrics) RateLimitOption {
	return func(o *rateLimitOptions) {
		o.metrics = metrics
	}
}

// RateLimit returns a middleware that limits requests per client IP.
// When the limiter itself fails the request is let through, so an
// unavailable Redis does not take payments down with it.
func RateLimit(limiter ratelimit.Limiter, opts ...RateLimitOption) func(http.Handler) http.Handler {
	o := &rateLimitOptions{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := util.ClientIP(r)

			res, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				o.logger.WithContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					observability.String("store", limiter.Store()),
					observability.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !res.Allowed {
				o.logger.WithContext(r.Context()).Warn("rate limit exceeded",
					observability.String("client_ip", clientIP),
					observability.String("path", r.URL.Path),
				)
				if o.metrics != nil {
					o.metrics.RecordRateLimitHit(limiter.Store())
				}

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.Header().Set(HeaderRetryAfter, retryAfterSeconds(res))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, errRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds the wait up to whole seconds, minimum one.
func retryAfterSeconds(res *ratelimit.Result) string {
	secs := int(math.Ceil(res.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
