package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/solitude/internal/backend"
	"github.com/vyrodovalexey/solitude/internal/backend/auth"
)

// Sentinel errors for dispatch.
var (
	// ErrUnknownBackend indicates an unknown backend or service name.
	ErrUnknownBackend = backend.ErrUnknownBackend

	// ErrMissingRoutingHeader indicates that the service header was not sent.
	ErrMissingRoutingHeader = errors.New("missing routing header")

	// ErrAuthComputation indicates that auth headers could not be computed.
	ErrAuthComputation = auth.ErrAuthComputation

	// ErrNotImplemented indicates that the backend's auth is not ported.
	ErrNotImplemented = auth.ErrNotImplemented

	// ErrTransport indicates that the upstream call did not complete.
	ErrTransport = errors.New("upstream transport failure")

	// ErrDisabled indicates that the backend is switched off.
	ErrDisabled = errors.New("backend disabled")

	// ErrRequestBody indicates that the inbound body could not be read.
	ErrRequestBody = errors.New("failed to read request body")
)

// ProxyError represents a dispatch failure with details.
type ProxyError struct {
	Op      string // Operation that failed
	Backend string // Backend name if applicable
	Service string // Service name if applicable
	Message string // Human-readable message
	Cause   error  // Underlying error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	prefix := fmt.Sprintf("proxy error [%s]", e.Op)
	if e.Backend != "" {
		prefix += " backend=" + e.Backend
	}
	if e.Service != "" {
		prefix += " service=" + e.Service
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ProxyError) Is(target error) bool {
	_, ok := target.(*ProxyError)
	return ok
}

// NewProxyError creates a new ProxyError.
func NewProxyError(op, backendName, service, message string, cause error) *ProxyError {
	return &ProxyError{
		Op:      op,
		Backend: backendName,
		Service: service,
		Message: message,
		Cause:   cause,
	}
}

// TransportError is an upstream call failure with its failure class.
type TransportError struct {
	Class string
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrTransport, e.Class, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// FailureClass returns the transport failure class in err, or "" when
// err is not a transport failure.
func FailureClass(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Class
	}
	return ""
}

// StatusCode maps a dispatch error to the HTTP status sent to the caller.
func StatusCode(err error) int {
	var maxBytesErr *http.MaxBytesError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrDisabled):
		return http.StatusNotFound
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnknownBackend),
		errors.Is(err, ErrMissingRoutingHeader),
		errors.Is(err, ErrRequestBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsCallerFault reports whether err was caused by the caller's request.
func IsCallerFault(err error) bool {
	if errors.Is(err, ErrDisabled) {
		return false
	}
	code := StatusCode(err)
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}

// errorType labels err for the errors_total metric.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrDisabled):
		return "disabled"
	case errors.Is(err, ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, ErrMissingRoutingHeader):
		return "missing_routing_header"
	case errors.Is(err, ErrUnknownBackend):
		return "unknown_service"
	case errors.Is(err, ErrRequestBody):
		return "request_body"
	case errors.Is(err, ErrAuthComputation):
		return "auth"
	case errors.Is(err, ErrTransport):
		return FailureClass(err)
	default:
		return "other"
	}
}
