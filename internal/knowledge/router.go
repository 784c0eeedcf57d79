package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Router manages knowledge backends and keeps one open store per backend
type Router struct {
	factories map[string]StoreFactory
	pool      map[string]Store
	mu        sync.RWMutex
}

// NewRouter creates a new backend router
func NewRouter() *Router {
	return &Router{
		factories: make(map[string]StoreFactory),
		pool:      make(map[string]Store),
	}
}

// RegisterBackend registers a store factory under a backend name
func (r *Router) RegisterBackend(name string, factory StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// SupportedBackends returns the registered backend names
func (r *Router) SupportedBackends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns a connected store for the backend, reconnecting if the pooled
// one fails its health check
func (r *Router) Open(ctx context.Context, backend string, config ConnectionConfig) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.pool[backend]; ok {
		if err := store.HealthCheck(ctx); err == nil {
			return store, nil
		}
		store.Close()
		delete(r.pool, backend)
	}

	factory, ok := r.factories[backend]
	if !ok {
		return nil, fmt.Errorf("unsupported knowledge backend: %s", backend)
	}

	store := factory()
	if err := store.Connect(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to connect knowledge backend %s: %w", backend, err)
	}

	r.pool[backend] = store
	return store, nil
}

// CloseAll closes all open stores
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, store := range r.pool {
		store.Close()
		delete(r.pool, name)
	}
}
