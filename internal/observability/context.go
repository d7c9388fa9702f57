package observability

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	traceIDKey
	spanIDKey
)

// loggedKeys maps context keys to the log field they are written as.
var loggedKeys = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, "request_id"},
	{traceIDKey, "trace_id"},
	{spanIDKey, "span_id"},
}

func contextFields(ctx context.Context) []Field {
	var fields []Field
	for _, k := range loggedKeys {
		if v := stringValue(ctx, k.key); v != "" {
			fields = append(fields, String(k.field, v))
		}
	}
	return fields
}

func stringValue(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// ContextWithTraceID adds a trace ID to the context.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext extracts the trace ID from context.
func TraceIDFromContext(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

// ContextWithSpanID adds a span ID to the context.
func ContextWithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

// SpanIDFromContext extracts the span ID from context.
func SpanIDFromContext(ctx context.Context) string {
	return stringValue(ctx, spanIDKey)
}
