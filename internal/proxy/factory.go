package proxy

import (
	"fmt"

	"github.com/vyrodovalexey/solitude/internal/backend"
	"github.com/vyrodovalexey/solitude/internal/backend/auth"
	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
	"github.com/vyrodovalexey/solitude/internal/vault"
)

type factoryOptions struct {
	logger      observability.Logger
	authMetrics *auth.Metrics
}

// FactoryOption is a functional option for NewAdaptersFromConfig.
type FactoryOption func(*factoryOptions)

// WithFactoryLogger sets the logger handed to every built component.
func WithFactoryLogger(logger observability.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithAuthMetrics sets the metrics shared by the auth injectors.
func WithAuthMetrics(metrics *auth.Metrics) FactoryOption {
	return func(o *factoryOptions) {
		o.authMetrics = metrics
	}
}

// NewAdaptersFromConfig builds the PayPal and Bango adapters. reader is
// needed only when a backend reads its credentials from Vault.
func NewAdaptersFromConfig(cfg config.ProxyConfig, reader vault.KVReader, opts ...FactoryOption) ([]Adapter, error) {
	o := &factoryOptions{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}
	if o.authMetrics == nil {
		o.authMetrics = auth.NopMetrics()
	}
	injectorOpts := []auth.InjectorOption{auth.WithLogger(o.logger), auth.WithMetrics(o.authMetrics)}

	paypalCfg := cfg.Backends.PayPal
	paypalRegistry, paypalPoster, err := buildTransport(BackendPayPal, paypalCfg, o.logger)
	if err != nil {
		return nil, err
	}
	source, err := auth.NewCredentialSource(paypalCfg.Credentials, reader)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", BackendPayPal, err)
	}
	paypal := NewPayPalAdapter(
		adapterConfig(cfg, paypalCfg),
		paypalRegistry,
		auth.NewPayPalInjector(source, injectorOpts...),
		paypalPoster,
		WithAdapterLogger(o.logger),
	)

	bangoCfg := cfg.Backends.Bango
	bangoRegistry, bangoPoster, err := buildTransport(BackendBango, bangoCfg, o.logger)
	if err != nil {
		return nil, err
	}
	bango := NewBangoAdapter(
		adapterConfig(cfg, bangoCfg),
		bangoRegistry,
		auth.NewBangoInjector(injectorOpts...),
		bangoPoster,
		WithAdapterLogger(o.logger),
	)

	return []Adapter{paypal, bango}, nil
}

func adapterConfig(cfg config.ProxyConfig, bc config.BackendConfig) AdapterConfig {
	return AdapterConfig{
		Enabled:       bc.IsEnabled(cfg.Enabled),
		Timeout:       bc.Timeout.OrDefault(config.DefaultBackendTimeout),
		AuthTimeout:   bc.Credentials.AuthTimeout.OrDefault(config.DefaultAuthTimeout),
		ServiceHeader: cfg.ServiceHeader,
		TokenHeader:   cfg.TokenHeader,
	}
}

func buildTransport(
	name string,
	bc config.BackendConfig,
	logger observability.Logger,
) (*backend.Registry, *backend.Caller, error) {
	registry, err := backend.NewRegistry(name, bc.Services)
	if err != nil {
		return nil, nil, err
	}

	poolCfg := backend.DefaultPoolConfig()
	if bc.CAFile != "" {
		roots, err := backend.LoadCertPool(bc.CAFile)
		if err != nil {
			return nil, nil, fmt.Errorf("backend %s: %w", name, err)
		}
		poolCfg.RootCAs = roots
	}

	caller := backend.NewCaller(backend.NewConnectionPool(poolCfg), backend.WithCallerLogger(logger))
	return registry, caller, nil
}
