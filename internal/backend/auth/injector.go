package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Injector computes the authentication headers for one backend.
type Injector interface {
	// Name returns the backend name.
	Name() string

	// Headers returns the headers to add to the outbound request. The
	// returned header is owned by the caller.
	Headers(ctx context.Context, md Metadata) (http.Header, error)

	// Close releases resources.
	Close() error
}

// Metadata describes the outbound call being authenticated.
type Metadata struct {
	Method string
	URL    string

	// Token holds the decoded caller token, nil when none was sent.
	Token map[string]string
}

// ParseToken decodes a query-encoded token such as "token=a&secret=b".
// Repeated keys keep their first value. Returns nil for an empty or
// undecodable value.
func ParseToken(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil || len(values) == 0 {
		return nil
	}

	token := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			token[k] = v[0]
		}
	}
	return token
}

// InjectorOption is a functional option for configuring injectors.
type InjectorOption func(interface{})

// WithLogger sets the logger for the injector.
func WithLogger(logger observability.Logger) InjectorOption {
	return func(i interface{}) {
		switch injector := i.(type) {
		case *PayPalInjector:
			injector.logger = logger
		case *BangoInjector:
			injector.logger = logger
		}
	}
}

// WithMetrics sets the metrics for the injector.
func WithMetrics(metrics *Metrics) InjectorOption {
	return func(i interface{}) {
		switch injector := i.(type) {
		case *PayPalInjector:
			injector.metrics = metrics
		case *BangoInjector:
			injector.metrics = metrics
		}
	}
}

// WithClock sets the time source used for signature timestamps.
func WithClock(now func() time.Time) InjectorOption {
	return func(i interface{}) {
		if injector, ok := i.(*PayPalInjector); ok && now != nil {
			injector.now = now
		}
	}
}
