package util

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/net/http/httpguts"
)

// Validation sentinels. Returned errors wrap one of these.
var (
	ErrEmptyValue          = errors.New("value cannot be empty")
	ErrInvalidURL          = errors.New("invalid URL")
	ErrInvalidHeaderName   = errors.New("invalid header name")
	ErrNonPositiveDuration = errors.New("duration must be positive")
)

// ValidateURL checks that rawURL is an absolute http or https URL with a
// host. URLs carrying user info or a fragment are rejected so that
// credentials never end up in a service map or in logs.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL: %w", ErrEmptyValue)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	switch {
	case parsed.Scheme != "http" && parsed.Scheme != "https":
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, parsed.Scheme)
	case parsed.Host == "":
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	case parsed.User != nil:
		return fmt.Errorf("%w: user info is not allowed", ErrInvalidURL)
	case parsed.Fragment != "":
		return fmt.Errorf("%w: fragment is not allowed", ErrInvalidURL)
	}

	return nil
}

// ValidateHeaderName checks name against the RFC 7230 token grammar.
func ValidateHeaderName(name string) error {
	if name == "" {
		return fmt.Errorf("header name: %w", ErrEmptyValue)
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidHeaderName, name)
	}
	return nil
}

// ValidatePositiveDuration rejects zero and negative durations.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %v", ErrNonPositiveDuration, d)
	}
	return nil
}
