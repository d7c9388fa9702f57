package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "solitude",
		SamplingRate: 1,
		Enabled:      true,
	}, WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	return tracer, recorder
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{ServiceName: "solitude"})

	require.NoError(t, err)
	assert.Nil(t, tracer.provider)
	assert.NoError(t, tracer.Shutdown(context.Background()))

	_, span := tracer.StartSpan(context.Background(), "proxy.call")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewTracer_RecordsSpans(t *testing.T) {
	t.Parallel()

	tracer, recorder := recordingTracer(t)

	_, span := tracer.StartSpan(context.Background(), "proxy.call",
		trace.WithAttributes(AttrBackend.String("paypal")))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "proxy.call", ended[0].Name())

	v, ok := attrValue(ended[0], AttrBackend)
	require.True(t, ok)
	assert.Equal(t, "paypal", v.AsString())
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
		want string
	}{
		{name: "always", rate: 1.0, want: "AlwaysOnSampler"},
		{name: "above one", rate: 2, want: "AlwaysOnSampler"},
		{name: "never", rate: 0, want: "AlwaysOffSampler"},
		{name: "ratio", rate: 0.5, want: "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, createSampler(tt.rate).Description())
		})
	}
}

func TestOTLPClientOptions(t *testing.T) {
	t.Parallel()

	assert.Len(t, otlpClientOptions("localhost:4317"), 5)
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantError bool
	}{
		{name: "caller fault stays unset", status: http.StatusBadRequest},
		{name: "server failure marks error", status: http.StatusInternalServerError, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tracer, recorder := recordingTracer(t)

			var traceID string
			handler := TracingMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				traceID = TraceIDFromContext(r.Context())
				assert.True(t, SpanFromContext(r.Context()).IsRecording())
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodPost, "/proxy/paypal", nil)
			req = req.WithContext(ContextWithRequestID(req.Context(), "req-1"))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			ended := recorder.Ended()
			require.Len(t, ended, 1)
			span := ended[0]
			assert.Equal(t, "POST /proxy/paypal", span.Name())
			assert.Equal(t, trace.SpanKindServer, span.SpanKind())
			assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

			id, ok := attrValue(span, AttrRequestID)
			require.True(t, ok)
			assert.Equal(t, "req-1", id.AsString())

			status, ok := attrValue(span, "http.response.status_code")
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), status.AsInt64())

			if tt.wantError {
				assert.Equal(t, codes.Error, span.Status().Code)
			} else {
				assert.Equal(t, codes.Unset, span.Status().Code)
			}
		})
	}
}

func TestNopTracer_StartSpan(t *testing.T) {
	t.Parallel()

	tracer := NopTracer()
	ctx, span := tracer.StartSpan(context.Background(), "proxy.call")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, tracer.Shutdown(context.Background()))
}
