package proxy

import (
	"github.com/vyrodovalexey/solitude/internal/backend"
	"github.com/vyrodovalexey/solitude/internal/backend/auth"
)

// PayPalAdapter proxies calls to the PayPal Adaptive APIs.
type PayPalAdapter struct {
	httpAdapter
}

// NewPayPalAdapter creates a PayPal adapter.
func NewPayPalAdapter(
	cfg AdapterConfig,
	registry *backend.Registry,
	injector auth.Injector,
	poster Poster,
	opts ...AdapterOption,
) *PayPalAdapter {
	return &PayPalAdapter{
		httpAdapter: newHTTPAdapter(BackendPayPal, cfg, registry, injector, poster, opts...),
	}
}

var _ Adapter = (*PayPalAdapter)(nil)
