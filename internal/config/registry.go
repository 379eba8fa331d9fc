package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maalaph/voicematch/internal/catalog"
)

// ErrProviderNotRegistered is returned by [Registry.Create] when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a catalog provider from the catalog config block.
type Factory func(CatalogConfig) (catalog.Provider, error)

// Registry maps catalog provider names to their constructor functions.
// It is safe for concurrent use. The service registers the built-in
// backends at startup; tests register fakes under their own names.
type Registry struct {
	mu        sync.RWMutex
	factories map[Provider]Factory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Provider]Factory)}
}

// Register registers a catalog provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) Register(name Provider, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates a catalog provider using the factory registered under
// cfg.Provider. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) Create(cfg CatalogConfig) (catalog.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}
