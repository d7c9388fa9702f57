package vault

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// KVReader reads secrets from a KV mount.
type KVReader interface {
	ReadKV(ctx context.Context, mount, path string) (map[string]interface{}, error)
}

// Client is a thin token-authenticated Vault client.
type Client struct {
	api     *vaultapi.Client
	logger  observability.Logger
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithMetrics sets the metrics recorder for the client.
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New creates a Vault client from configuration.
func New(cfg config.VaultConfig, logger observability.Logger, opts ...ClientOption) (*Client, error) {
	if cfg.Address == "" {
		return nil, NewVaultError("init", "", "address is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = cfg.Timeout.OrDefault(config.DefaultVaultTimeout)
	// Callers bound reads with a short auth timeout; the client's
	// one-second retry backoff would consume it.
	apiConfig.MaxRetries = 0

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, NewVaultError("init", "", "failed to create vault client", err)
	}

	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	c := &Client{
		api:    api,
		logger: logger.With(observability.String("component", "vault")),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics("solitude")
	}

	return c, nil
}

// ReadKV reads the secret at mount/path. KV v2 responses are unwrapped
// from their "data" envelope; a soft-deleted v2 secret is ErrSecretNotFound.
func (c *Client) ReadKV(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	mount = strings.Trim(mount, "/")
	path = strings.Trim(path, "/")
	if mount == "" || path == "" {
		return nil, NewVaultError("kv_read", "", "mount and path are required", ErrInvalidPath)
	}

	start := time.Now()
	fullPath := fmt.Sprintf("%s/data/%s", mount, path)

	secret, err := c.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		c.metrics.RecordRequest("kv_read", "error", time.Since(start))
		return nil, NewVaultError("kv_read", fullPath, "failed to read secret", err)
	}

	if secret == nil || secret.Data == nil {
		c.metrics.RecordRequest("kv_read", "not_found", time.Since(start))
		return nil, NewVaultError("kv_read", fullPath, "", ErrSecretNotFound)
	}

	dataValue, hasData := secret.Data["data"]
	if hasData && dataValue == nil {
		c.metrics.RecordRequest("kv_read", "not_found", time.Since(start))
		return nil, NewVaultError("kv_read", fullPath, "secret deleted", ErrSecretNotFound)
	}

	data, ok := dataValue.(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	c.metrics.RecordRequest("kv_read", "success", time.Since(start))
	c.logger.Debug("secret read",
		observability.String("path", fullPath),
	)

	return data, nil
}

// Health reports whether Vault is reachable, initialized and unsealed.
func (c *Client) Health(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	start := time.Now()
	health, err := c.api.Sys().HealthWithContext(ctx)
	if err != nil {
		c.metrics.RecordRequest("health", "error", time.Since(start))
		return NewVaultError("health", "", "failed to get health status", err)
	}
	c.metrics.RecordRequest("health", "success", time.Since(start))

	if !health.Initialized {
		return NewVaultError("health", "", "vault is not initialized", nil)
	}
	if health.Sealed {
		return NewVaultError("health", "", "vault is sealed", nil)
	}
	return nil
}

// Close marks the client closed. Further calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}
