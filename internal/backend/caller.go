package backend

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/go-resty/resty/v2"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// Transport failure classes used in logs and metrics.
const (
	FailureTimeout           = "timeout"
	FailureConnectionRefused = "connection_refused"
	FailureTLS               = "tls"
	FailureDNS               = "dns"
	FailureOther             = "other"
)

// userAgent identifies the proxy to payment backends.
const userAgent = "solitude-proxy"

// Response is an upstream answer, carried back verbatim.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Caller posts request bodies to upstream services.
type Caller struct {
	client *resty.Client
	pool   *ConnectionPool
	logger observability.Logger
}

// CallerOption is a functional option for configuring the caller.
type CallerOption func(*Caller)

// WithCallerLogger sets the logger.
func WithCallerLogger(logger observability.Logger) CallerOption {
	return func(c *Caller) {
		c.logger = logger
	}
}

// NewCaller creates a caller over the pool's transport.
func NewCaller(pool *ConnectionPool, opts ...CallerOption) *Caller {
	c := &Caller{
		pool:   pool,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = resty.NewWithClient(pool.Client()).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetLogger(restyLogger{c.logger}).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	return c
}

// Post sends body to url with headers. Any upstream status is a
// successful call; only transport failures return an error. The context
// deadline bounds the whole exchange including the body read.
func (c *Caller) Post(ctx context.Context, url string, headers http.Header, body []byte) (*Response, error) {
	req := c.client.R().SetContext(ctx)
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if body == nil {
		body = []byte{}
	}

	resp, err := req.SetBody(body).Post(url)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}

	return &Response{
		StatusCode:  resp.StatusCode(),
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

// Close drops the pool's idle connections.
func (c *Caller) Close() error {
	c.pool.CloseIdleConnections()
	return nil
}

// ClassifyTransportError names the kind of transport failure in err.
func ClassifyTransportError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureConnectionRefused
	}

	if isTLSError(err) {
		return FailureTLS
	}

	return FailureOther
}

func isTLSError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownCA   x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr)
}

// restyLogger routes resty's own diagnostics into the structured logger.
type restyLogger struct {
	logger observability.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), observability.String("component", "resty"))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), observability.String("component", "resty"))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), observability.String("component", "resty"))
}
