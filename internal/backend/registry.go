package backend

import (
	"fmt"
	"sort"

	"github.com/vyrodovalexey/solitude/internal/util"
)

// Registry maps a backend's service names to upstream URLs.
type Registry struct {
	backend  string
	services map[string]string
}

// NewRegistry validates and copies services. Every URL must be an
// absolute http or https URL with a host.
func NewRegistry(backend string, services map[string]string) (*Registry, error) {
	copied := make(map[string]string, len(services))
	for name, rawURL := range services {
		if name == "" {
			return nil, fmt.Errorf("backend %s: empty service name", backend)
		}
		if err := util.ValidateURL(rawURL); err != nil {
			return nil, fmt.Errorf("backend %s service %s: %w", backend, name, err)
		}
		copied[name] = rawURL
	}

	return &Registry{
		backend:  backend,
		services: copied,
	}, nil
}

// Resolve returns the URL registered for name. A missing name yields an
// *UnknownServiceError matching ErrUnknownBackend.
func (r *Registry) Resolve(name string) (string, error) {
	u, ok := r.services[name]
	if !ok {
		return "", &UnknownServiceError{Backend: r.backend, Service: name}
	}
	return u, nil
}

// Backend returns the backend this registry belongs to.
func (r *Registry) Backend() string {
	return r.backend
}

// Names returns the registered service names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.services)
}
