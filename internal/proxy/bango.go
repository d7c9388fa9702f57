package proxy

import (
	"github.com/vyrodovalexey/solitude/internal/backend"
	"github.com/vyrodovalexey/solitude/internal/backend/auth"
)

// BangoAdapter proxies calls to Bango. Its injector has no ported auth
// scheme, so enabled calls end in 501 before reaching the network.
type BangoAdapter struct {
	httpAdapter
}

// NewBangoAdapter creates a Bango adapter.
func NewBangoAdapter(
	cfg AdapterConfig,
	registry *backend.Registry,
	injector auth.Injector,
	poster Poster,
	opts ...AdapterOption,
) *BangoAdapter {
	return &BangoAdapter{
		httpAdapter: newHTTPAdapter(BackendBango, cfg, registry, injector, poster, opts...),
	}
}

var _ Adapter = (*BangoAdapter)(nil)
