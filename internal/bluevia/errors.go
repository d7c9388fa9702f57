package bluevia

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for Bluevia operations.
var (
	// ErrInvalidToken indicates a JWT that fails signature or claim checks.
	ErrInvalidToken = errors.New("invalid jwt")

	// ErrMissingSecret indicates that no signing secret was configured.
	ErrMissingSecret = errors.New("bluevia secret is not configured")
)

// nonFieldKey collects errors that concern the request as a whole.
const nonFieldKey = "__all__"

// FieldErrors maps request fields to their validation messages.
type FieldErrors map[string][]string

// Add appends msg to field.
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Error implements the error interface.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e FieldErrors) errOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
