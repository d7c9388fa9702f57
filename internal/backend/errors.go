package backend

import (
	"errors"
	"fmt"
)

// ErrUnknownBackend indicates a backend or service name with no registry
// entry.
var ErrUnknownBackend = errors.New("unknown backend")

// UnknownServiceError reports a service name missing from a backend's
// registry.
type UnknownServiceError struct {
	Backend string
	Service string
}

// Error implements the error interface.
func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q for backend %s", e.Service, e.Backend)
}

// Is reports ErrUnknownBackend.
func (e *UnknownServiceError) Is(target error) bool {
	return target == ErrUnknownBackend
}
