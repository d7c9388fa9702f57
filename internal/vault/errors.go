package vault

import (
	"errors"
	"fmt"
)

// Common errors for Vault operations.
var (
	// ErrSecretNotFound indicates the secret was not found or was deleted.
	ErrSecretNotFound = errors.New("vault: secret not found")

	// ErrInvalidPath indicates an empty mount or path.
	ErrInvalidPath = errors.New("vault: invalid secret path")

	// ErrInvalidConfig indicates invalid client configuration.
	ErrInvalidConfig = errors.New("vault: invalid configuration")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("vault: client closed")
)

// VaultError represents a Vault operation failure with context.
type VaultError struct {
	Op      string // Operation that failed
	Path    string // Secret path if applicable
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	msg := "vault " + e.Op
	if e.Path != "" {
		msg += " on path " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// NewVaultError creates a VaultError wrapping cause.
func NewVaultError(op, path, message string, cause error) *VaultError {
	return &VaultError{
		Op:      op,
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}
