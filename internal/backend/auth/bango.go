package auth

import (
	"context"
	"net/http"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

const bangoName = "bango"

// BangoInjector stands in for Bango's SOAP authentication, which is not
// ported. It never lets a request through unauthenticated.
type BangoInjector struct {
	logger  observability.Logger
	metrics *Metrics
}

// NewBangoInjector creates a Bango injector.
func NewBangoInjector(opts ...InjectorOption) *BangoInjector {
	b := &BangoInjector{
		logger:  observability.NopLogger(),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend name.
func (b *BangoInjector) Name() string {
	return bangoName
}

// Headers always returns ErrNotImplemented.
func (b *BangoInjector) Headers(_ context.Context, _ Metadata) (http.Header, error) {
	b.metrics.RecordRequest(bangoName, "not_implemented", 0)
	b.logger.Debug("bango auth is not implemented")
	return nil, ErrNotImplemented
}

// Close does nothing.
func (b *BangoInjector) Close() error {
	return nil
}

var _ Injector = (*BangoInjector)(nil)
