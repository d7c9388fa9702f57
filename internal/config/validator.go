package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vyrodovalexey/solitude/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates proxy configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns ValidationErrors when
// anything is wrong.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&cfg.Server)
	v.validateLogging(&cfg.Logging)
	v.validateTracing(&cfg.Tracing)
	v.validateProxy(cfg)
	v.validateRateLimit(&cfg.RateLimit)
	v.validateBluevia(&cfg.Bluevia)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.Address == "" {
		v.addError("server.address", "address is required")
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		v.addError("server", "timeouts cannot be negative")
	}
	if s.MaxBodyBytes < 0 {
		v.addError("server.maxBodyBytes", "must not be negative")
	}
}

func (v *Validator) validateLogging(l *LoggingConfig) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("unsupported level %q", l.Level))
	}
	switch l.Format {
	case "json", "console":
	default:
		v.addError("logging.format", "format must be json or console")
	}
}

func (v *Validator) validateTracing(t *TracingConfig) {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "samplingRate must be between 0 and 1")
	}
}

func (v *Validator) validateProxy(cfg *Config) {
	p := &cfg.Proxy
	if err := util.ValidateHeaderName(p.ServiceHeader); err != nil {
		v.addError("proxy.serviceHeader", err.Error())
	}
	if err := util.ValidateHeaderName(p.TokenHeader); err != nil {
		v.addError("proxy.tokenHeader", err.Error())
	}
	if strings.EqualFold(p.ServiceHeader, p.TokenHeader) {
		v.addError("proxy.tokenHeader", "tokenHeader must differ from serviceHeader")
	}

	v.validateBackend(&p.Backends.PayPal, "proxy.backends.paypal", cfg)
	v.validateBackend(&p.Backends.Bango, "proxy.backends.bango", cfg)

	paypal := &p.Backends.PayPal
	if paypal.IsEnabled(p.Enabled) && paypal.Credentials.Source == CredentialSourceStatic {
		c := &paypal.Credentials
		if c.UserID == "" || c.Password == "" || c.Signature == "" {
			v.addError("proxy.backends.paypal.credentials",
				"userId, password and signature are required for the static source")
		}
	}
}

func (v *Validator) validateBackend(b *BackendConfig, path string, cfg *Config) {
	if err := util.ValidatePositiveDuration(b.Timeout.Duration()); err != nil {
		v.addError(path+".timeout", err.Error())
	}

	if b.IsEnabled(cfg.Proxy.Enabled) && len(b.Services) == 0 {
		v.addError(path+".services", "an enabled backend needs at least one service")
	}

	names := make([]string, 0, len(b.Services))
	for name := range b.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "" {
			v.addError(path+".services", "service name cannot be empty")
			continue
		}
		if err := util.ValidateURL(b.Services[name]); err != nil {
			v.addError(path+".services."+name, err.Error())
		}
	}

	v.validateCredentials(&b.Credentials, b.Timeout, path+".credentials", cfg)
}

func (v *Validator) validateCredentials(c *CredentialsConfig, timeout Duration, path string, cfg *Config) {
	switch c.Source {
	case CredentialSourceStatic:
	case CredentialSourceVault:
		if c.VaultPath == "" {
			v.addError(path+".vaultPath", "vaultPath is required for the vault source")
		}
		if cfg.Vault.Address == "" {
			v.addError("vault.address", "address is required when a backend reads credentials from vault")
		}
		if c.AuthTimeout <= 0 {
			v.addError(path+".authTimeout", "authTimeout must be positive")
		} else if c.AuthTimeout >= timeout {
			v.addError(path+".authTimeout", "authTimeout must be shorter than the backend timeout")
		}
	default:
		v.addError(path+".source", fmt.Sprintf("source must be %s or %s", CredentialSourceStatic, CredentialSourceVault))
	}
}

func (v *Validator) validateRateLimit(r *RateLimitConfig) {
	if !r.Enabled {
		return
	}
	if r.Requests <= 0 {
		v.addError("rateLimit.requests", "requests must be positive")
	}
	if r.Window <= 0 {
		v.addError("rateLimit.window", "window must be positive")
	}
	switch r.Store {
	case RateLimitStoreMemory:
		if r.Burst <= 0 {
			v.addError("rateLimit.burst", "burst must be positive")
		}
	case RateLimitStoreRedis:
		if r.Redis.Address == "" {
			v.addError("rateLimit.redis.address", "address is required for the redis store")
		}
	default:
		v.addError("rateLimit.store", "store must be memory or redis")
	}
}

func (v *Validator) validateBluevia(b *BlueviaConfig) {
	if !b.Enabled {
		return
	}
	if b.Secret == "" {
		v.addError("bluevia.secret", "secret is required when bluevia is enabled")
	}
	for i, c := range b.Currencies {
		if len(c) != 3 || strings.ToUpper(c) != c {
			v.addError(fmt.Sprintf("bluevia.currencies[%d]", i), fmt.Sprintf("invalid currency code %q", c))
		}
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
