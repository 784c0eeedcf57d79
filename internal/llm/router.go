package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderNotConfigured = errors.New("provider not configured")
)

// Router resolves provider names to registered providers
type Router struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
}

// NewRouter creates a router whose empty-name lookups go to defaultProvider
func NewRouter(defaultProvider string) *Router {
	return &Router{
		providers:       make(map[string]Provider),
		defaultProvider: defaultProvider,
	}
}

// RegisterProvider adds provider, replacing any provider of the same name
func (r *Router) RegisterProvider(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns the named provider if it is usable. An empty name
// selects the default.
func (r *Router) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(name)
}

func (r *Router) lookup(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}
	p, ok := r.providers[name]
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	case !p.IsConfigured():
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
	}
	return p, nil
}

// Select returns the named provider, falling back to the default when the
// named one is missing or unconfigured.
func (r *Router) Select(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, err := r.lookup(name)
	if err == nil || name == "" || name == r.defaultProvider {
		return p, err
	}

	log.Warn().Err(err).Str("default", r.defaultProvider).Msg("Falling back to default LLM provider")
	return r.lookup("")
}

// ListProviders returns the sorted names of configured providers
func (r *Router) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name, p := range r.providers {
		if p.IsConfigured() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DefaultProvider returns the default provider name
func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// ProviderInfo describes a registered provider
type ProviderInfo struct {
	Name       string   `json:"name"`
	Models     []string `json:"models"`
	Default    bool     `json:"default"`
	Configured bool     `json:"configured"`
}

// GetProvidersInfo describes every registered provider, sorted by name
func (r *Router) GetProvidersInfo() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for name, p := range r.providers {
		infos = append(infos, ProviderInfo{
			Name:       name,
			Models:     p.AvailableModels(),
			Default:    name == r.defaultProvider,
			Configured: p.IsConfigured(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
