package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/solitude/internal/backend/auth"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

func serve(d *Dispatcher, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(RoutePattern, d)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	return rec
}

func TestDispatcher_UpstreamSuccessIsVerbatim(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotHeader http.Header
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})

	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)})
	rec := serve(d, proxyRequest(BackendPayPal, "get-pay-key", "actionType=PAY&amount=1.00"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	assert.Equal(t, "actionType=PAY&amount=1.00", gotBody)
	assert.Equal(t, "application/x-www-form-urlencoded", gotHeader.Get("Content-Type"))
	assert.Equal(t, "api_user.example.com", gotHeader.Get(auth.HeaderPayPalUserID))
	assert.Equal(t, "NV", gotHeader.Get(auth.HeaderPayPalRequestFormat))
	assert.Empty(t, gotHeader.Get("X-Solitude-Service"))
}

func TestDispatcher_UpstreamErrorStatusPassesThrough(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("responseEnvelope.ack=Failure"))
	})

	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)})
	rec := serve(d, proxyRequest(BackendPayPal, "get-pay-key", ""))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "responseEnvelope.ack=Failure", rec.Body.String())
}

func TestDispatcher_UnknownBackend(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)})

	for _, name := range []string{"bluevia", "PAYPAL", "stripe"} {
		resp := d.Handle(proxyRequest(name, "get-pay-key", ""), name)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.True(t, errors.Is(resp.Err, ErrUnknownBackend))
		assert.JSONEq(t, `{"error":"unknown backend"}`, string(resp.Body))
		assert.Equal(t, "application/json", resp.ContentType)
	}
	assert.Zero(t, upstream.hits.Load())
}

func TestDispatcher_UnknownService(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)})

	rec := serve(d, proxyRequest(BackendPayPal, "get-nothing", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"unknown service \"get-nothing\""}`, rec.Body.String())
	assert.Zero(t, upstream.hits.Load())
}

func TestDispatcher_MissingRoutingHeader(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})

	adapter := NewPayPalAdapter(
		enabledConfig(),
		testRegistry(t, BackendPayPal, map[string]string{"get-pay-key": upstream.URL}),
		testPayPalInjector(),
		testPoster(),
		WithAdapterLogger(observability.NewLoggerFromZap(zap.New(core))),
	)
	d := NewDispatcher([]Adapter{adapter})

	r := proxyRequest(BackendPayPal, "", "a=1")
	r.Header.Set("X-Solitude-Token", "token=very-secret-value&secret=s")
	resp := d.Handle(r, BackendPayPal)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, errors.Is(resp.Err, ErrMissingRoutingHeader))
	assert.True(t, IsCallerFault(resp.Err))
	assert.JSONEq(t, `{"error":"missing X-Solitude-Service header"}`, string(resp.Body))
	assert.Zero(t, upstream.hits.Load())

	entries := logs.FilterMessage("missing routing header").All()
	require.Len(t, entries, 1)
	names, ok := entries[0].ContextMap()["received_headers"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Content-Type", "X-Solitude-Token"}, names)
	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "very-secret-value")
		}
	}
}

func TestDispatcher_DisabledBackend(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("should not be reached"))
	})

	cfg := enabledConfig()
	cfg.Enabled = false
	d := NewDispatcher([]Adapter{newPayPal(t, cfg, upstream.URL)})

	for _, r := range []*http.Request{
		proxyRequest(BackendPayPal, "get-pay-key", "a=1"),
		proxyRequest(BackendPayPal, "", ""),
		proxyRequest(BackendPayPal, "get-nothing", "x"),
	} {
		rec := serve(d, r)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Body.String())
	}
	assert.Zero(t, upstream.hits.Load())
}

func TestDispatcher_ConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := "http://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	core, logs := observer.New(zap.DebugLevel)
	metrics := NewMetrics("test")
	d := NewDispatcher(
		[]Adapter{newPayPal(t, enabledConfig(), addr)},
		WithLogger(observability.NewLoggerFromZap(zap.New(core))),
		WithMetrics(metrics),
	)

	rec := serve(d, proxyRequest(BackendPayPal, "get-pay-key", "a=1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "refused")

	entries := logs.FilterMessage("upstream call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection_refused", entries[0].ContextMap()["failure_class"])
	assert.Equal(t, "get-pay-key", entries[0].ContextMap()["service"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.callsTotal.WithLabelValues(BackendPayPal, OutcomeTransportError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.errorsTotal.WithLabelValues(BackendPayPal, "connection_refused")))
}

func TestDispatcher_TimeoutOverride(t *testing.T) {
	t.Parallel()

	unit := 200 * time.Millisecond
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * unit):
			_, _ = w.Write([]byte("late"))
		}
	})

	cfg := enabledConfig()
	cfg.Timeout = unit
	cfg.AuthTimeout = unit / 2
	d := NewDispatcher([]Adapter{newPayPal(t, cfg, upstream.URL)})

	start := time.Now()
	resp := d.Handle(proxyRequest(BackendPayPal, "get-pay-key", ""), BackendPayPal)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "timeout", FailureClass(resp.Err))
	assert.GreaterOrEqual(t, elapsed, unit)
	assert.Less(t, elapsed, unit+3*unit/4)
}

func TestDispatcher_AuthFailure(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})

	tests := []struct {
		name     string
		injector auth.Injector
		cfg      AdapterConfig
		wantCode int
		wantBody string
	}{
		{
			name:     "computation error",
			injector: stubInjector{err: auth.NewInjectorError("stub", "headers", "boom", nil)},
			cfg:      enabledConfig(),
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "plain error is wrapped",
			injector: stubInjector{err: errors.New("vault sealed")},
			cfg:      enabledConfig(),
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "auth timeout",
			injector: slowInjector{},
			cfg:      AdapterConfig{Enabled: true, Timeout: time.Second, AuthTimeout: 50 * time.Millisecond},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "not implemented",
			injector: auth.NewBangoInjector(),
			cfg:      enabledConfig(),
			wantCode: http.StatusNotImplemented,
			wantBody: `{"error":"backend auth not implemented"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			adapter := NewBangoAdapter(
				tt.cfg,
				testRegistry(t, BackendBango, map[string]string{"create-package": upstream.URL}),
				tt.injector,
				testPoster(),
			)
			d := NewDispatcher([]Adapter{adapter})

			start := time.Now()
			rec := serve(d, proxyRequest(BackendBango, "create-package", "<xml/>"))

			assert.Less(t, time.Since(start), 500*time.Millisecond)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody == "" {
				assert.Empty(t, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
	assert.Zero(t, upstream.hits.Load())
}

func TestDispatcher_NoTokenLeakBetweenRequests(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := map[string]string{}
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen[string(b)] = r.Header.Get(auth.HeaderPayPalAuthorization)
		mu.Unlock()
	})

	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)})

	callers := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	for _, c := range callers {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(c string) {
				defer wg.Done()
				r := proxyRequest(BackendPayPal, "get-pay-key", c)
				r.Header.Set("X-Solitude-Token", "token="+c+"&secret=s-"+c)
				resp := d.Handle(r, BackendPayPal)
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}(c)
		}
	}

	r := proxyRequest(BackendPayPal, "get-pay-key", "anonymous")
	assert.Equal(t, http.StatusOK, d.Handle(r, BackendPayPal).StatusCode)
	wg.Wait()

	require.Len(t, seen, len(callers)+1)
	assert.Empty(t, seen["anonymous"])
	for _, c := range callers {
		assert.True(t, strings.HasPrefix(seen[c], "token="+c+",signature="), seen[c])
	}
}

func TestDispatcher_Tracing(t *testing.T) {
	t.Parallel()

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	recorder := tracetest.NewSpanRecorder()
	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  "solitude",
		SamplingRate: 1,
		Enabled:      true,
	}, observability.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)}, WithTracer(tracer))
	resp := d.Handle(proxyRequest(BackendPayPal, "get-pay-key", ""), BackendPayPal)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, resp.Err)

	resp = d.Handle(proxyRequest(BackendPayPal, "no-such-service", ""), BackendPayPal)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	attrs := func(i int) map[attribute.Key]attribute.Value {
		m := map[attribute.Key]attribute.Value{}
		for _, kv := range ended[i].Attributes() {
			m[kv.Key] = kv.Value
		}
		return m
	}

	ok := attrs(0)
	assert.Equal(t, "proxy.call", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
	assert.Equal(t, BackendPayPal, ok[observability.AttrBackend].AsString())
	assert.Equal(t, "get-pay-key", ok[observability.AttrService].AsString())
	assert.Equal(t, int64(http.StatusOK), ok["http.response.status_code"].AsInt64())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)

	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "unknown_service", ended[1].Status().Description)
}

func TestDispatcher_MetricsRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics("solitude")
	require.NoError(t, reg.Register(metrics))

	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	d := NewDispatcher([]Adapter{newPayPal(t, enabledConfig(), upstream.URL)}, WithMetrics(metrics))

	d.Handle(proxyRequest("nope", "", ""), "nope")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.callsTotal.WithLabelValues(unknownBackendLabel, OutcomeCallerError)))
	count, err := testutil.GatherAndCount(reg, "solitude_proxy_upstream_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDispatcher_Close(t *testing.T) {
	t.Parallel()

	injector := testPayPalInjector()
	adapter := NewPayPalAdapter(
		enabledConfig(),
		testRegistry(t, BackendPayPal, nil),
		injector,
		testPoster(),
	)
	d := NewDispatcher([]Adapter{adapter, nil})

	require.NoError(t, d.Close())
	_, err := injector.Headers(context.Background(), auth.Metadata{})
	assert.ErrorIs(t, err, auth.ErrInjectorClosed)
}

