package auth

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/solitude/internal/observability"
)

// PayPal header names.
const (
	HeaderPayPalUserID         = "X-PAYPAL-SECURITY-USERID"
	HeaderPayPalPassword       = "X-PAYPAL-SECURITY-PASSWORD"
	HeaderPayPalSignature      = "X-PAYPAL-SECURITY-SIGNATURE"
	HeaderPayPalApplicationID  = "X-PAYPAL-APPLICATION-ID"
	HeaderPayPalRequestFormat  = "X-PAYPAL-REQUEST-DATA-FORMAT"
	HeaderPayPalResponseFormat = "X-PAYPAL-RESPONSE-DATA-FORMAT"
	HeaderPayPalAuthorization  = "X-PAYPAL-AUTHORIZATION"
)

// Token keys accepted from the caller.
const (
	TokenKey       = "token"
	TokenSecretKey = "secret"
)

const (
	payPalName       = "paypal"
	payPalDataFormat = "NV"
)

// PayPalInjector adds PayPal Adaptive API credentials to outbound calls.
type PayPalInjector struct {
	source  CredentialSource
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time

	closed atomic.Bool
}

// NewPayPalInjector creates a PayPal injector over source.
func NewPayPalInjector(source CredentialSource, opts ...InjectorOption) *PayPalInjector {
	p := &PayPalInjector{
		source:  source,
		logger:  observability.NopLogger(),
		metrics: NopMetrics(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With(observability.String("injector", payPalName))

	return p
}

// Name returns the backend name.
func (p *PayPalInjector) Name() string {
	return payPalName
}

// Headers returns the security headers and, when md carries a caller
// token, the signed authorization header.
func (p *PayPalInjector) Headers(ctx context.Context, md Metadata) (http.Header, error) {
	if p.closed.Load() {
		return nil, NewInjectorError(payPalName, "headers", "injector is closed", ErrInjectorClosed)
	}

	start := time.Now()

	creds, err := p.source.Credentials(ctx)
	if err != nil {
		p.metrics.RecordRequest(payPalName, "error", time.Since(start))
		p.logger.Warn("failed to obtain credentials", observability.Error(err))
		return nil, NewInjectorError(payPalName, "credentials", "failed to obtain credentials", err)
	}

	h := make(http.Header, 7)
	h.Set(HeaderPayPalUserID, creds.UserID)
	h.Set(HeaderPayPalPassword, creds.Password)
	h.Set(HeaderPayPalSignature, creds.Signature)
	h.Set(HeaderPayPalApplicationID, creds.ApplicationID)
	h.Set(HeaderPayPalRequestFormat, payPalDataFormat)
	h.Set(HeaderPayPalResponseFormat, payPalDataFormat)

	if len(md.Token) > 0 {
		authz, err := p.authorization(md, creds)
		if err != nil {
			p.metrics.RecordRequest(payPalName, "error", time.Since(start))
			return nil, err
		}
		h.Set(HeaderPayPalAuthorization, authz)
	}

	p.metrics.RecordRequest(payPalName, "success", time.Since(start))
	p.logger.Debug("computed auth headers",
		observability.Bool("authorization", h.Get(HeaderPayPalAuthorization) != ""),
	)

	return h, nil
}

func (p *PayPalInjector) authorization(md Metadata, creds *Credentials) (string, error) {
	token, secret := md.Token[TokenKey], md.Token[TokenSecretKey]
	if token == "" || secret == "" {
		return "", NewInjectorError(payPalName, "authorization",
			"caller token requires both token and secret", ErrMissingCredential)
	}

	method := md.Method
	if method == "" {
		method = http.MethodPost
	}

	ts := p.now()
	sig := oauthSignature(method, md.URL, creds.UserID, creds.Password, token, secret, ts)

	return "token=" + token +
		",signature=" + sig +
		",timestamp=" + strconv.FormatInt(ts.Unix(), 10), nil
}

// Close closes the injector.
func (p *PayPalInjector) Close() error {
	p.closed.Store(true)
	return nil
}

var _ Injector = (*PayPalInjector)(nil)
