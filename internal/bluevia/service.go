package bluevia

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/observability"
)

// DefaultTokenTTL is how long an issued pay JWT stays valid.
const DefaultTokenTTL = time.Hour

// Service validates payment requests and signs or verifies pay JWTs.
type Service struct {
	secret     []byte
	currencies map[string]struct{}
	ttl        time.Duration
	now        func() time.Time
	logger     observability.Logger
}

// Option is a functional option for configuring the service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source for iat, exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates a service from cfg. The secret must be set.
func NewService(cfg config.BlueviaConfig, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	s := &Service{
		secret:     []byte(cfg.Secret),
		currencies: make(map[string]struct{}, len(cfg.Currencies)),
		ttl:        DefaultTokenTTL,
		now:        time.Now,
		logger:     observability.NopLogger(),
	}
	for _, c := range cfg.Currencies {
		s.currencies[c] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// PreparePay validates req and returns a signed pay JWT. Validation
// failures are returned as FieldErrors.
func (s *Service) PreparePay(ctx context.Context, req *PayRequest) (string, error) {
	if err := s.validatePay(req); err != nil {
		return "", err
	}

	now := s.now()
	tok, err := jwt.NewBuilder().
		Issuer(req.Seller).
		Audience([]string{req.Aud}).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim("typ", req.Typ).
		Claim("request", map[string]string{
			"name":          req.AppName,
			"description":   req.AppDescription,
			"amount":        req.Amount.String(),
			"currency":      req.Currency,
			"postbackURL":   req.PostbackURL,
			"chargebackURL": req.ChargebackURL,
			"productData":   req.ProductData,
		}).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build pay jwt: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign pay jwt: %w", err)
	}

	s.logger.WithContext(ctx).Debug("issued pay jwt",
		observability.String("seller", req.Seller),
		observability.String("typ", req.Typ),
	)
	return string(signed), nil
}

// CheckJWT verifies the signature and time claims of req.JWT. Failures
// are returned as FieldErrors keyed on "jwt" and match ErrInvalidToken.
func (s *Service) CheckJWT(ctx context.Context, req *JWTRequest) error {
	if err := validateJWTRequest(req); err != nil {
		return err
	}

	_, err := jwt.Parse([]byte(req.JWT),
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		s.logger.WithContext(ctx).Debug("rejected pay jwt",
			observability.String("seller", req.Seller),
			observability.Error(err),
		)
		return &InvalidTokenError{Fields: FieldErrors{"jwt": {err.Error()}}, Cause: err}
	}

	return nil
}

// InvalidTokenError is a JWT rejection reported per field.
type InvalidTokenError struct {
	Fields FieldErrors
	Cause  error
}

// Error implements the error interface.
func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("%v: %v", ErrInvalidToken, e.Cause)
}

// Unwrap returns the underlying error.
func (e *InvalidTokenError) Unwrap() error {
	return e.Cause
}

// Is matches ErrInvalidToken.
func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}
