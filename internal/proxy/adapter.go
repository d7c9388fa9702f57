package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/vyrodovalexey/solitude/internal/backend"
	"github.com/vyrodovalexey/solitude/internal/backend/auth"
	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Backend names.
const (
	BackendPayPal = "paypal"
	BackendBango  = "bango"
)

// Request is a prepared outbound call.
type Request struct {
	Service string
	URL     string
	Header  http.Header
	Body    []byte
}

// Result is an upstream answer.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Adapter prepares, performs and post-processes calls to one backend.
type Adapter interface {
	// Name returns the backend name.
	Name() string

	// Enabled reports whether calls may be made.
	Enabled() bool

	// Timeout bounds one call including auth.
	Timeout() time.Duration

	// Prepare builds the outbound request from the inbound one.
	Prepare(ctx context.Context, r *http.Request) (*Request, error)

	// Call performs the outbound POST.
	Call(ctx context.Context, req *Request) (*Result, error)

	// PostProcess adjusts the result before it is written back.
	PostProcess(res *Result) *Result
}

// Poster sends a POST to an upstream URL.
type Poster interface {
	Post(ctx context.Context, url string, headers http.Header, body []byte) (*backend.Response, error)
}

// AdapterConfig holds the per-backend settings an adapter needs.
type AdapterConfig struct {
	Enabled       bool
	Timeout       time.Duration
	AuthTimeout   time.Duration
	ServiceHeader string
	TokenHeader   string
}

// AdapterOption is a functional option for configuring adapters.
type AdapterOption func(*httpAdapter)

// WithAdapterLogger sets the adapter logger.
func WithAdapterLogger(logger observability.Logger) AdapterOption {
	return func(a *httpAdapter) {
		a.logger = logger
	}
}

// httpAdapter is the pipeline shared by every backend; backends differ
// only in their registry and injector.
type httpAdapter struct {
	name     string
	cfg      AdapterConfig
	registry *backend.Registry
	injector auth.Injector
	poster   Poster
	logger   observability.Logger
}

func newHTTPAdapter(
	name string,
	cfg AdapterConfig,
	registry *backend.Registry,
	injector auth.Injector,
	poster Poster,
	opts ...AdapterOption,
) httpAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultBackendTimeout
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = config.DefaultAuthTimeout
	}
	if cfg.ServiceHeader == "" {
		cfg.ServiceHeader = config.DefaultServiceHeader
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = config.DefaultTokenHeader
	}

	a := httpAdapter{
		name:     name,
		cfg:      cfg,
		registry: registry,
		injector: injector,
		poster:   poster,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	a.logger = a.logger.With(observability.Backend(name))

	return a
}

// Name returns the backend name.
func (a *httpAdapter) Name() string {
	return a.name
}

// Enabled reports whether calls may be made.
func (a *httpAdapter) Enabled() bool {
	return a.cfg.Enabled
}

// Timeout returns the per-call timeout.
func (a *httpAdapter) Timeout() time.Duration {
	return a.cfg.Timeout
}

// Prepare reads the body, resolves the service and computes auth headers.
func (a *httpAdapter) Prepare(ctx context.Context, r *http.Request) (*Request, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, NewProxyError("prepare", a.name, "", "failed to read request body",
			fmt.Errorf("%w: %w", ErrRequestBody, err))
	}

	service := r.Header.Get(a.cfg.ServiceHeader)
	if service == "" {
		a.logger.WithContext(ctx).Error("missing routing header",
			observability.String("header", a.cfg.ServiceHeader),
			observability.Strings("received_headers", headerNames(r.Header)),
		)
		return nil, NewProxyError("prepare", a.name, "",
			fmt.Sprintf("missing %s header", a.cfg.ServiceHeader), ErrMissingRoutingHeader)
	}

	target, err := a.registry.Resolve(service)
	if err != nil {
		return nil, NewProxyError("prepare", a.name, service,
			fmt.Sprintf("unknown service %q", service), err)
	}

	authCtx, cancel := context.WithTimeout(ctx, a.cfg.AuthTimeout)
	defer cancel()

	headers, err := a.injector.Headers(authCtx, auth.Metadata{
		Method: http.MethodPost,
		URL:    target,
		Token:  auth.ParseToken(r.Header.Get(a.cfg.TokenHeader)),
	})
	if err != nil {
		if !errors.Is(err, ErrNotImplemented) && !errors.Is(err, ErrAuthComputation) {
			err = fmt.Errorf("%w: %w", ErrAuthComputation, err)
		}
		return nil, NewProxyError("prepare", a.name, service, "failed to compute auth headers", err)
	}
	if headers == nil {
		headers = make(http.Header)
	}
	if headers.Get("Content-Type") == "" {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			headers.Set("Content-Type", ct)
		}
	}

	return &Request{
		Service: service,
		URL:     target,
		Header:  headers,
		Body:    body,
	}, nil
}

// Call posts the prepared request. Any upstream status is a result;
// only transport failures are errors.
func (a *httpAdapter) Call(ctx context.Context, req *Request) (*Result, error) {
	a.logger.WithContext(ctx).Info("calling service", observability.Service(req.Service))

	resp, err := a.poster.Post(ctx, req.URL, req.Header, req.Body)
	if err != nil {
		return nil, NewProxyError("call", a.name, req.Service, "upstream call failed", &TransportError{
			Class: backend.ClassifyTransportError(err),
			Cause: err,
		})
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		ContentType: resp.ContentType,
	}, nil
}

// Close releases the injector and the upstream connections.
func (a *httpAdapter) Close() error {
	err := a.injector.Close()
	if c, ok := a.poster.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// PostProcess returns res unchanged.
func (a *httpAdapter) PostProcess(res *Result) *Result {
	return res
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return []byte{}, nil
	}
	return io.ReadAll(r.Body)
}

// headerNames returns the sorted names of h, never its values.
func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
