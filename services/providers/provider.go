package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider defines the interface that all lyrics providers must implement
type Provider interface {
	// Name returns the provider's identifier (e.g., "lrclib", "musixmatch")
	Name() string

	// Origin returns the kind of source this provider represents
	Origin() Origin

	// Fetch looks up lyrics for the given track.
	// Returns ErrNotConfigured, ErrNotFound, or a *ProviderError wrapping
	// the transport or decoding failure.
	Fetch(ctx context.Context, track TrackIdentity, opts FetchOptions) (*LyricsSource, error)

	// CacheKeyPrefix returns the prefix used for cache keys (e.g., "lrclib_lyrics")
	CacheKeyPrefix() string
}

// Registry holds all registered providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered provider names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a provider is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}
