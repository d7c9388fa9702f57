package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/solitude/internal/backend"
	"github.com/vyrodovalexey/solitude/internal/backend/auth"
)

// countingUpstream is an httptest upstream that counts requests.
type countingUpstream struct {
	*httptest.Server
	hits atomic.Int32
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *countingUpstream {
	t.Helper()

	u := &countingUpstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func testPoster() *backend.Caller {
	return backend.NewCaller(backend.NewConnectionPool(backend.DefaultPoolConfig()))
}

func testRegistry(t *testing.T, name string, services map[string]string) *backend.Registry {
	t.Helper()

	reg, err := backend.NewRegistry(name, services)
	require.NoError(t, err)
	return reg
}

func testPayPalInjector() *auth.PayPalInjector {
	return auth.NewPayPalInjector(
		auth.NewStaticCredentialSource(auth.Credentials{
			UserID:        "api_user.example.com",
			Password:      "pass",
			Signature:     "sig",
			ApplicationID: "APP-1",
		}),
		auth.WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
}

func enabledConfig() AdapterConfig {
	return AdapterConfig{
		Enabled:     true,
		Timeout:     2 * time.Second,
		AuthTimeout: time.Second,
	}
}

func newPayPal(t *testing.T, cfg AdapterConfig, upstreamURL string) *PayPalAdapter {
	t.Helper()

	return NewPayPalAdapter(
		cfg,
		testRegistry(t, BackendPayPal, map[string]string{"get-pay-key": upstreamURL + "/AdaptivePayments/Pay"}),
		testPayPalInjector(),
		testPoster(),
	)
}

func proxyRequest(backendName, service, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/proxy/"+backendName, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if service != "" {
		r.Header.Set("X-Solitude-Service", service)
	}
	return r
}

// stubInjector returns a fixed error or echoes the caller token.
type stubInjector struct {
	err error
}

func (s stubInjector) Name() string { return "stub" }

func (s stubInjector) Headers(_ context.Context, md auth.Metadata) (http.Header, error) {
	if s.err != nil {
		return nil, s.err
	}
	h := http.Header{}
	h.Set("X-Token-Echo", md.Token["token"])
	return h, nil
}

func (s stubInjector) Close() error { return nil }

// slowInjector blocks until its context ends.
type slowInjector struct{}

func (slowInjector) Name() string { return "slow" }

func (slowInjector) Headers(ctx context.Context, _ auth.Metadata) (http.Header, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowInjector) Close() error { return nil }
