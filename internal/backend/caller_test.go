package backend

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCaller(pool *ConnectionPool) *Caller {
	if pool == nil {
		pool = NewConnectionPool(DefaultPoolConfig())
	}
	return NewCaller(pool)
}

func TestCaller_Post_PassesThroughStatusAndBody(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotHeader http.Header
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("responseEnvelope.ack=Failure"))
	}))
	t.Cleanup(upstream.Close)

	headers := http.Header{}
	headers.Set("X-PAYPAL-APPLICATION-ID", "APP-1")

	resp, err := newTestCaller(nil).Post(context.Background(), upstream.URL, headers, []byte("a=1&b=2"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "responseEnvelope.ack=Failure", string(resp.Body))
	assert.Equal(t, "text/plain", resp.ContentType)
	assert.Equal(t, "a=1&b=2", string(gotBody))
	assert.Equal(t, "APP-1", gotHeader.Get("X-PAYPAL-APPLICATION-ID"))
	assert.Equal(t, userAgent, gotHeader.Get("User-Agent"))
}

func TestCaller_Post_DoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			t.Error("redirect was followed")
		}
		http.Redirect(w, r, "/moved", http.StatusFound)
	}))
	t.Cleanup(upstream.Close)

	resp, err := newTestCaller(nil).Post(context.Background(), upstream.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestCaller_Post_Timeout(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(upstream.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestCaller(nil).Post(ctx, upstream.URL, nil, []byte("x"))
	require.Error(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, FailureTimeout, ClassifyTransportError(err))
}

func TestCaller_Post_ConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = newTestCaller(nil).Post(context.Background(), "http://"+addr+"/pay", nil, nil)
	require.Error(t, err)
	assert.Equal(t, FailureConnectionRefused, ClassifyTransportError(err))
}

func TestCaller_Post_UntrustedCertificate(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request reached an untrusted upstream")
	}))
	t.Cleanup(upstream.Close)

	_, err := newTestCaller(nil).Post(context.Background(), upstream.URL, nil, nil)
	require.Error(t, err)
	assert.Equal(t, FailureTLS, ClassifyTransportError(err))
}

func TestCaller_Post_TrustedCustomRoot(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(upstream.Close)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	cert := upstream.Certificate()
	require.NoError(t, os.WriteFile(caFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}), 0o600))

	roots, err := LoadCertPool(caFile)
	require.NoError(t, err)

	cfg := DefaultPoolConfig()
	cfg.RootCAs = roots

	resp, err := newTestCaller(NewConnectionPool(cfg)).Post(context.Background(), upstream.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestLoadCertPool_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadCertPool(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not a certificate"), 0o600))
	_, err = LoadCertPool(empty)
	assert.Error(t, err)
}

func TestClassifyTransportError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: context.DeadlineExceeded, want: FailureTimeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "api.invalid"}, want: FailureDNS},
		{name: "unknown authority", err: x509.UnknownAuthorityError{}, want: FailureTLS},
		{name: "wrapped refused", err: &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, want: FailureConnectionRefused},
		{name: "other", err: errors.New("malformed response"), want: FailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyTransportError(tt.err))
		})
	}
}

func TestConnectionPool(t *testing.T) {
	t.Parallel()

	pool := NewConnectionPool(DefaultPoolConfig())

	require.NotNil(t, pool.Client())
	require.NotNil(t, pool.Transport().TLSClientConfig)
	assert.False(t, pool.Transport().TLSClientConfig.InsecureSkipVerify)
	assert.Equal(t, uint16(0x0303), pool.Transport().TLSClientConfig.MinVersion)
	assert.NotPanics(t, pool.CloseIdleConnections)
}
