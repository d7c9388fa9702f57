package config

import "time"

// Default values applied by DefaultConfig and ApplyDefaults.
const (
	DefaultServerAddress       = ":8080"
	DefaultAdminAddress        = ":9090"
	DefaultMetricsPath         = "/metrics"
	DefaultReadTimeout         = 15 * time.Second
	DefaultWriteTimeout        = 30 * time.Second
	DefaultIdleTimeout         = 60 * time.Second
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultMaxBodyBytes  int64 = 1 << 20

	DefaultServiceHeader  = "X-Solitude-Service"
	DefaultTokenHeader    = "X-Solitude-Token"
	DefaultBackendTimeout = 10 * time.Second
	DefaultAuthTimeout    = 5 * time.Second

	DefaultVaultMount   = "secret"
	DefaultVaultTimeout = 5 * time.Second

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = time.Second
	DefaultRateLimitBurst    = 20
	DefaultRedisKeyPrefix    = "solitude:ratelimit:"

	DefaultServiceName = "solitude"
)

// Credential sources.
const (
	CredentialSourceStatic = "static"
	CredentialSourceVault  = "vault"
)

// Rate limiter stores.
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// payPalSandbox is the root of the PayPal sandbox APIs.
const payPalSandbox = "https://svcs.sandbox.paypal.com/"

// Config is the root configuration of the payment proxy.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Admin     AdminConfig     `yaml:"admin" json:"admin"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
	Proxy     ProxyConfig     `yaml:"proxy" json:"proxy"`
	Vault     VaultConfig     `yaml:"vault" json:"vault"`
	RateLimit RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
	Bluevia   BlueviaConfig   `yaml:"bluevia" json:"bluevia"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	MaxBodyBytes    int64    `yaml:"maxBodyBytes" json:"maxBodyBytes"`
}

// AdminConfig configures the admin listener serving health and metrics.
type AdminConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Address     string `yaml:"address" json:"address"`
	MetricsPath string `yaml:"metricsPath" json:"metricsPath"`
}

// LoggingConfig configures the logger. Level is the only field applied
// on reload.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// ProxyConfig configures the request proxy.
type ProxyConfig struct {
	// Enabled is the global switch. A disabled proxy answers 404 for
	// every backend.
	Enabled       bool           `yaml:"enabled" json:"enabled"`
	ServiceHeader string         `yaml:"serviceHeader" json:"serviceHeader"`
	TokenHeader   string         `yaml:"tokenHeader" json:"tokenHeader"`
	Backends      BackendsConfig `yaml:"backends" json:"backends"`
}

// BackendsConfig holds the closed set of payment backends.
type BackendsConfig struct {
	PayPal BackendConfig `yaml:"paypal" json:"paypal"`
	Bango  BackendConfig `yaml:"bango" json:"bango"`
}

// BackendConfig configures one payment backend.
type BackendConfig struct {
	// Enabled overrides the global switch when set to false.
	Enabled *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// CAFile adds a PEM bundle to the trusted roots for this backend.
	// Certificate verification itself cannot be turned off.
	CAFile      string            `yaml:"caFile,omitempty" json:"caFile,omitempty"`
	Services    map[string]string `yaml:"services" json:"services"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
}

// IsEnabled reports whether the backend is switched on, given the
// global proxy switch.
func (b BackendConfig) IsEnabled(global bool) bool {
	if !global {
		return false
	}
	return b.Enabled == nil || *b.Enabled
}

// CredentialsConfig describes where a backend's API credentials come from.
type CredentialsConfig struct {
	Source        string   `yaml:"source" json:"source"`
	UserID        string   `yaml:"userId,omitempty" json:"userId,omitempty"`
	Password      string   `yaml:"password,omitempty" json:"-"`
	Signature     string   `yaml:"signature,omitempty" json:"-"`
	ApplicationID string   `yaml:"applicationId,omitempty" json:"applicationId,omitempty"`
	VaultMount    string   `yaml:"vaultMount,omitempty" json:"vaultMount,omitempty"`
	VaultPath     string   `yaml:"vaultPath,omitempty" json:"vaultPath,omitempty"`
	AuthTimeout   Duration `yaml:"authTimeout" json:"authTimeout"`
}

// VaultConfig configures the Vault client used for credential lookups.
type VaultConfig struct {
	Address   string   `yaml:"address" json:"address"`
	Token     string   `yaml:"token,omitempty" json:"-"`
	Namespace string   `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig configures inbound rate limiting per client address.
type RateLimitConfig struct {
	Enabled  bool        `yaml:"enabled" json:"enabled"`
	Store    string      `yaml:"store" json:"store"`
	Requests int         `yaml:"requests" json:"requests"`
	Window   Duration    `yaml:"window" json:"window"`
	Burst    int         `yaml:"burst" json:"burst"`
	Redis    RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig configures the Redis rate limit store.
type RedisConfig struct {
	Address   string `yaml:"address" json:"address"`
	Password  string `yaml:"password,omitempty" json:"-"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"keyPrefix" json:"keyPrefix"`
}

// BlueviaConfig configures the Bluevia pay-JWT endpoints.
type BlueviaConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Secret     string   `yaml:"secret,omitempty" json:"-"`
	Currencies []string `yaml:"currencies" json:"currencies"`
}

// DefaultConfig returns a configuration with every default applied.
// The proxy starts disabled.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// DefaultPayPalServices returns the PayPal service map on the sandbox.
func DefaultPayPalServices() map[string]string {
	return map[string]string{
		"get-pay-key":           payPalSandbox + "AdaptivePayments/Pay",
		"check-purchase":        payPalSandbox + "AdaptivePayments/PaymentDetails",
		"get-refund":            payPalSandbox + "AdaptivePayments/Refund",
		"get-preapproval-key":   payPalSandbox + "AdaptivePayments/Preapproval",
		"get-permission-url":    payPalSandbox + "Permissions/RequestPermissions",
		"get-permission-token":  payPalSandbox + "Permissions/GetAccessToken",
		"check-permission":      payPalSandbox + "Permissions/GetPermissions",
		"get-personal":          payPalSandbox + "Permissions/GetBasicPersonalData",
		"get-personal-advanced": payPalSandbox + "Permissions/GetAdvancedPersonalData",
		"get-verified":          payPalSandbox + "AdaptiveAccounts/GetVerifiedStatus",
	}
}

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	if cfg.Admin.Address == "" {
		cfg.Admin.Address = DefaultAdminAddress
	}
	if cfg.Admin.MetricsPath == "" {
		cfg.Admin.MetricsPath = DefaultMetricsPath
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}

	if cfg.Proxy.ServiceHeader == "" {
		cfg.Proxy.ServiceHeader = DefaultServiceHeader
	}
	if cfg.Proxy.TokenHeader == "" {
		cfg.Proxy.TokenHeader = DefaultTokenHeader
	}
	if cfg.Proxy.Backends.PayPal.Services == nil {
		cfg.Proxy.Backends.PayPal.Services = DefaultPayPalServices()
	}
	// Both backends route against the same service names.
	if cfg.Proxy.Backends.Bango.Services == nil {
		cfg.Proxy.Backends.Bango.Services = DefaultPayPalServices()
	}
	applyBackendDefaults(&cfg.Proxy.Backends.PayPal)
	applyBackendDefaults(&cfg.Proxy.Backends.Bango)

	if cfg.Vault.Timeout == 0 {
		cfg.Vault.Timeout = Duration(DefaultVaultTimeout)
	}

	applyRateLimitDefaults(&cfg.RateLimit)

	if len(cfg.Bluevia.Currencies) == 0 {
		cfg.Bluevia.Currencies = []string{"USD", "EUR", "GBP"}
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Address == "" {
		s.Address = DefaultServerAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func applyBackendDefaults(b *BackendConfig) {
	if b.Timeout == 0 {
		b.Timeout = Duration(DefaultBackendTimeout)
	}
	if b.Services == nil {
		b.Services = map[string]string{}
	}
	if b.Credentials.Source == "" {
		b.Credentials.Source = CredentialSourceStatic
	}
	if b.Credentials.AuthTimeout == 0 {
		b.Credentials.AuthTimeout = Duration(DefaultAuthTimeout)
	}
	if b.Credentials.Source == CredentialSourceVault && b.Credentials.VaultMount == "" {
		b.Credentials.VaultMount = DefaultVaultMount
	}
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.Store == "" {
		r.Store = RateLimitStoreMemory
	}
	if r.Requests == 0 {
		r.Requests = DefaultRateLimitRequests
	}
	if r.Window == 0 {
		r.Window = Duration(DefaultRateLimitWindow)
	}
	if r.Burst == 0 {
		r.Burst = DefaultRateLimitBurst
	}
	if r.Redis.KeyPrefix == "" {
		r.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
}
