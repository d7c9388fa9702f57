package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// RoutePattern is the ServeMux pattern served by the Dispatcher.
const RoutePattern = "POST /proxy/{backend}"

// Response is what the Dispatcher writes back to the caller.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string

	// Err is the dispatch failure, nil on success.
	Err error
}

// Dispatcher routes inbound requests to backend adapters.
type Dispatcher struct {
	adapters map[string]Adapter
	logger   observability.Logger
	metrics  *Metrics
	tracer   *observability.Tracer
}

// DispatcherOption is a functional option for configuring the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the dispatcher metrics.
func WithMetrics(metrics *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithTracer sets the tracer used for proxy.call spans.
func WithTracer(tracer *observability.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// NewDispatcher creates a dispatcher over adapters. A later adapter with
// the same name replaces an earlier one.
func NewDispatcher(adapters []Adapter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		adapters: make(map[string]Adapter, len(adapters)),
		logger:   observability.NopLogger(),
		tracer:   observability.NopTracer(),
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics("")
	}

	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		if a == nil {
			continue
		}
		d.adapters[a.Name()] = a
		names = append(names, a.Name())
	}
	d.metrics.Init(names...)

	return d
}

// ServeHTTP implements http.Handler for RoutePattern.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := d.Handle(r, r.PathValue("backend"))

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// Handle runs the dispatch pipeline for one request.
func (d *Dispatcher) Handle(r *http.Request, backendName string) *Response {
	adapter, ok := d.adapters[backendName]
	if !ok {
		err := NewProxyError("dispatch", backendName, "", "unknown backend", ErrUnknownBackend)
		d.metrics.recordCall(unknownBackendLabel, OutcomeCallerError)
		d.metrics.recordError(unknownBackendLabel, errorType(err))
		d.logger.WithContext(r.Context()).Warn("unknown backend",
			observability.Backend(backendName),
		)
		return errorResponse(err, "unknown backend")
	}

	if !adapter.Enabled() {
		d.metrics.recordCall(backendName, OutcomeDisabled)
		d.logger.WithContext(r.Context()).Debug("backend disabled",
			observability.Backend(backendName),
		)
		return &Response{
			StatusCode: http.StatusNotFound,
			Body:       []byte{},
			Err:        NewProxyError("dispatch", backendName, "", "backend disabled", ErrDisabled),
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), adapter.Timeout())
	defer cancel()

	ctx, span := d.tracer.StartSpan(ctx, "proxy.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.AttrBackend.String(backendName)),
	)
	defer span.End()

	res, err := d.dispatch(ctx, adapter, r, span)
	if err != nil {
		d.recordFailure(ctx, backendName, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, errorType(err))

		var pe *ProxyError
		msg := ""
		if errors.As(err, &pe) {
			msg = pe.Message
		}
		return errorResponse(err, msg)
	}

	d.metrics.recordCall(backendName, OutcomeSuccess)
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	return &Response{
		StatusCode:  res.StatusCode,
		Body:        res.Body,
		ContentType: res.ContentType,
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, adapter Adapter, r *http.Request, span trace.Span) (*Result, error) {
	req, err := adapter.Prepare(ctx, r)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttrService.String(req.Service))

	start := time.Now()
	res, err := adapter.Call(ctx, req)
	d.metrics.recordUpstream(adapter.Name(), time.Since(start))
	if err != nil {
		return nil, err
	}

	return adapter.PostProcess(res), nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, backendName string, err error) {
	errType := errorType(err)
	d.metrics.recordError(backendName, errType)

	var pe *ProxyError
	service := ""
	if errors.As(err, &pe) {
		service = pe.Service
	}
	fields := []observability.Field{
		observability.Backend(backendName),
		observability.Service(service),
		observability.String("error_type", errType),
	}
	logger := d.logger.WithContext(ctx)

	switch {
	case errors.Is(err, ErrTransport):
		d.metrics.recordCall(backendName, OutcomeTransportError)
		logger.Error("upstream call failed",
			append(fields, observability.String("failure_class", FailureClass(err)))...)
	case errors.Is(err, ErrNotImplemented):
		d.metrics.recordCall(backendName, OutcomeNotImplemented)
		logger.Warn("backend auth not implemented", fields...)
	case errors.Is(err, ErrAuthComputation):
		d.metrics.recordCall(backendName, OutcomeAuthError)
		logger.Error("auth header computation failed", fields...)
	default:
		d.metrics.recordCall(backendName, OutcomeCallerError)
		logger.Warn("rejected proxy request", fields...)
	}
}

// Close releases every adapter's resources.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, a := range d.adapters {
		if c, ok := a.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

type errorBody struct {
	Error string `json:"error"`
}

// errorResponse renders err. Caller faults and 501 carry a JSON body with
// msg; server-side failures get an empty body.
func errorResponse(err error, msg string) *Response {
	code := StatusCode(err)
	resp := &Response{StatusCode: code, Body: []byte{}, Err: err}

	if !IsCallerFault(err) && code != http.StatusNotImplemented {
		return resp
	}
	if code == http.StatusNotImplemented {
		msg = ErrNotImplemented.Error()
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	body, jsonErr := json.Marshal(errorBody{Error: msg})
	if jsonErr != nil {
		return resp
	}
	resp.Body = body
	resp.ContentType = "application/json"
	return resp
}
