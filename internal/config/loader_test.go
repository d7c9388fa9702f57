package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  address: ":8443"
  writeTimeout: 45s
logging:
  level: debug
proxy:
  enabled: true
  backends:
    paypal:
      timeout: 8s
      services:
        get-pay-key: https://api.example.com/AdaptivePayments/Pay
      credentials:
        source: static
        userId: ${TEST_SOLITUDE_PAYPAL_USER}
        password: ${TEST_SOLITUDE_PAYPAL_PASSWORD:-fallback}
        signature: sig
        applicationId: APP-1
    bango:
      enabled: false
bluevia:
  enabled: true
  secret: "$${literal}"
`

func TestLoadConfigFromReader(t *testing.T) {
	t.Setenv("TEST_SOLITUDE_PAYPAL_USER", "merchant")

	cfg, err := LoadConfigFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8443", cfg.Server.Address)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout.Duration())
	assert.Equal(t, DefaultReadTimeout, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "debug", cfg.Logging.Level)

	paypal := cfg.Proxy.Backends.PayPal
	assert.True(t, paypal.IsEnabled(cfg.Proxy.Enabled))
	assert.Equal(t, 8*time.Second, paypal.Timeout.Duration())
	assert.Equal(t, map[string]string{
		"get-pay-key": "https://api.example.com/AdaptivePayments/Pay",
	}, paypal.Services)
	assert.Equal(t, "merchant", paypal.Credentials.UserID)
	assert.Equal(t, "fallback", paypal.Credentials.Password)
	assert.Equal(t, DefaultAuthTimeout, paypal.Credentials.AuthTimeout.Duration())

	bango := cfg.Proxy.Backends.Bango
	assert.False(t, bango.IsEnabled(cfg.Proxy.Enabled))
	assert.Equal(t, DefaultBackendTimeout, bango.Timeout.Duration())
	assert.Equal(t, DefaultPayPalServices(), bango.Services)

	assert.Equal(t, DefaultServiceHeader, cfg.Proxy.ServiceHeader)
	assert.Equal(t, DefaultTokenHeader, cfg.Proxy.TokenHeader)
	assert.Equal(t, "${literal}", cfg.Bluevia.Secret)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "solitude.yaml")
	require.NoError(t, os.WriteFile(path, []byte("proxy:\n  enabled: false\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Proxy.Enabled)
	assert.Equal(t, DefaultPayPalServices(), cfg.Proxy.Backends.PayPal.Services)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfigFromReader(strings.NewReader("server: [unterminated"))
	assert.Error(t, err)

	_, err = LoadConfigFromReader(strings.NewReader("server:\n  readTimeout: soon\n"))
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_SOLITUDE_SET", "value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "a: ${TEST_SOLITUDE_SET}", want: "a: value"},
		{name: "unset with default", input: "a: ${TEST_SOLITUDE_UNSET:-dflt}", want: "a: dflt"},
		{name: "unset without default", input: "a: ${TEST_SOLITUDE_UNSET}", want: "a: "},
		{name: "set ignores default", input: "a: ${TEST_SOLITUDE_SET:-dflt}", want: "a: value"},
		{name: "escaped dollar", input: "a: $${TEST_SOLITUDE_SET}", want: "a: ${TEST_SOLITUDE_SET}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.False(t, cfg.Proxy.Enabled)
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Equal(t, DefaultMetricsPath, cfg.Admin.MetricsPath)
	assert.Equal(t, RateLimitStoreMemory, cfg.RateLimit.Store)
	assert.Equal(t, []string{"USD", "EUR", "GBP"}, cfg.Bluevia.Currencies)
	assert.Len(t, cfg.Proxy.Backends.PayPal.Services, 10)
	assert.NoError(t, ValidateConfig(cfg))
}
