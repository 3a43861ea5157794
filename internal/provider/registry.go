package provider

import (
	"errors"
	"fmt"
	"sort"
)

// Registry maps provider names to adapters. It is immutable once built, so
// concurrent lookups need no locking.
type Registry struct {
	byName map[string]Provider
	names  []string
}

// NewRegistry builds a registry from the given providers, rejecting
// duplicates and adapters that declare no models.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Provider, len(providers)),
	}

	for _, p := range providers {
		if p == nil {
			return nil, errors.New("provider must not be nil")
		}
		name := p.Name()
		if name == "" {
			return nil, errors.New("provider name must not be empty")
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("provider %q already registered", name)
		}
		catalog := p.ListModels()
		if len(catalog.Text) == 0 && len(catalog.Audio) == 0 {
			return nil, fmt.Errorf("provider %q declares no models", name)
		}
		r.byName[name] = p
		r.names = append(r.names, name)
	}

	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, NotFound(name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	return len(r.names)
}
