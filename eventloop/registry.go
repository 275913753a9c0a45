package eventloop

import (
	"fmt"
	"sync"
)

// Provider creates default event sources for a specific platform backend
type Provider interface {
	// Name identifies the backend, e.g. "terminal" or "x11"
	Name() string

	// IsAvailable returns true if the backend can run on the current system
	IsAvailable() bool

	// Build initializes a source carrying no user payload
	Build() (Source[Unit], error)
}

// registry manages the default source providers
type registry struct {
	providers []Provider
	mu        sync.RWMutex
}

var globalRegistry = &registry{
	providers: make([]Provider, 0),
}

// Register adds a provider to the global registry.
// Applications register their backends at startup, before calling New.
func Register(provider Provider) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.providers = append(globalRegistry.providers, provider)
}

// DetectProvider returns the first available provider.
// Priority is determined by registration order (first registered has highest priority).
func DetectProvider() (Provider, error) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	for _, p := range globalRegistry.providers {
		if p.IsAvailable() {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w (tried %d providers)", ErrNoProvider, len(globalRegistry.providers))
}

// Providers returns all registered providers
func Providers() []Provider {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	providers := make([]Provider, len(globalRegistry.providers))
	copy(providers, globalRegistry.providers)
	return providers
}

// LookupProvider returns the provider with the given name, or nil if not found
func LookupProvider(name string) Provider {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	for _, p := range globalRegistry.providers {
		if p.Name() == name {
			return p
		}
	}

	return nil
}

// ClearProviders removes all registered providers (primarily for testing)
func ClearProviders() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.providers = make([]Provider, 0)
}
