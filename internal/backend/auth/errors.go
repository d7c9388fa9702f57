package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for header computation.
var (
	// ErrAuthComputation indicates that auth headers could not be computed.
	ErrAuthComputation = errors.New("auth computation failed")

	// ErrNotImplemented indicates that the backend's auth scheme is not ported.
	ErrNotImplemented = errors.New("backend auth not implemented")

	// ErrInjectorClosed indicates that the injector has been closed.
	ErrInjectorClosed = errors.New("injector closed")

	// ErrMissingCredential indicates that a required credential is empty.
	ErrMissingCredential = errors.New("missing credential")
)

// InjectorError represents an injector failure with context. It always
// matches ErrAuthComputation.
type InjectorError struct {
	Injector  string
	Operation string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *InjectorError) Error() string {
	msg := fmt.Sprintf("backend auth %s (%s): %s", e.Operation, e.Injector, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InjectorError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *InjectorError) Is(target error) bool {
	if target == ErrAuthComputation {
		return true
	}
	_, ok := target.(*InjectorError)
	return ok
}

// NewInjectorError creates a new InjectorError.
func NewInjectorError(injector, operation, message string, cause error) *InjectorError {
	return &InjectorError{
		Injector:  injector,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
