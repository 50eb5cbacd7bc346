package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
)

// DefaultKind is used when neither the caller nor the configuration names a provider.
const DefaultKind = "ollama"

// Constructor builds a provider from its configuration.
type Constructor func(cfg domain.ProviderConfig) (domain.Provider, error)

// Adapt turns a constructor returning a concrete provider into a Constructor.
// A failed construction yields a nil interface, never a typed nil.
func Adapt[P domain.Provider](constructor func(cfg domain.ProviderConfig) (P, error)) Constructor {
	return func(cfg domain.ProviderConfig) (domain.Provider, error) {
		provider, err := constructor(cfg)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}
}

type entry struct {
	constructor Constructor
	config      domain.ProviderConfig
}

// Registry maps provider kinds to constructors and caches the process-wide default.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]entry
	configured string

	defaultMu       sync.Mutex
	defaultProvider domain.Provider
}

// NewRegistry creates a new provider registry. configuredKind is the kind
// selected by configuration; empty falls back to DefaultKind.
func NewRegistry(configuredKind string) *Registry {
	return &Registry{
		mu:         sync.RWMutex{},
		entries:    make(map[string]entry),
		configured: configuredKind,
	}
}

// Register adds or replaces a provider kind. The last registration for a name wins.
func (r *Registry) Register(name string, constructor Constructor, defaults domain.ProviderConfig) error {
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	if constructor == nil {
		return errors.New("provider constructor cannot be nil")
	}

	if defaults.Kind == "" {
		defaults.Kind = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = entry{constructor: constructor, config: defaults}

	return nil
}

// Create constructs a fresh provider. The kind is resolved from name, then the
// configured kind, then DefaultKind. A nil cfg uses the registered defaults.
func (r *Registry) Create(ctx context.Context, name string, cfg *domain.ProviderConfig) (domain.Provider, error) {
	kind := r.resolveKind(name)

	r.mu.RLock()
	registered, exists := r.entries[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s (available: %v)", domain.ErrUnknownProviderKind, kind, r.List(ctx))
	}

	providerConfig := registered.config
	if cfg != nil {
		providerConfig = *cfg
	}
	providerConfig.Kind = kind

	provider, err := registered.constructor(providerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", kind, err)
	}

	observability.FromContext(ctx).Info("provider created", observability.String("provider", kind))

	return provider, nil
}

// Default returns the process-wide default provider, constructing it on first
// use. A failed construction is not cached, so the next call retries.
func (r *Registry) Default(ctx context.Context) (domain.Provider, error) {
	r.defaultMu.Lock()
	defer r.defaultMu.Unlock()

	if r.defaultProvider != nil {
		return r.defaultProvider, nil
	}

	provider, err := r.Create(ctx, "", nil)
	if err != nil {
		return nil, err
	}

	r.defaultProvider = provider

	return provider, nil
}

// SetDefault replaces the cached default provider.
func (r *Registry) SetDefault(provider domain.Provider) {
	r.defaultMu.Lock()
	defer r.defaultMu.Unlock()

	r.defaultProvider = provider
}

// List returns the registered provider kinds in sorted order.
func (r *Registry) List(_ context.Context) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

func (r *Registry) resolveKind(name string) string {
	switch {
	case name != "":
		return name
	case r.configured != "":
		return r.configured
	default:
		return DefaultKind
	}
}
