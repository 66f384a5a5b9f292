// Package registry maps store codes to configured store clients.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/finn-wa/grocy-trolley-sub000/internal/store"
)

// Factory creates the client for a store on first use.
type Factory func() (store.Store, error)

// Registry manages store registration and retrieval
type Registry struct {
	mu        sync.RWMutex
	stores    map[store.Code]store.Store
	factories map[store.Code]Factory
}

// NewRegistry creates a new store registry
func NewRegistry() *Registry {
	return &Registry{
		stores:    make(map[store.Code]store.Store),
		factories: make(map[store.Code]Factory),
	}
}

// Register registers a ready store client
func (r *Registry) Register(s store.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.Code()] = s
}

// RegisterFactory registers a lazily created store client. Clients that need
// credentials are only built when a command uses them.
func (r *Registry) RegisterFactory(code store.Code, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[code] = f
}

// Get retrieves a store by code, creating it from its factory if needed
func (r *Registry) Get(code store.Code) (store.Store, error) {
	r.mu.RLock()
	s, ok := r.stores[code]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[code]; ok {
		return s, nil
	}
	f, ok := r.factories[code]
	if !ok {
		return nil, fmt.Errorf("no store implementation for %s", code)
	}
	s, err := f()
	if err != nil {
		return nil, fmt.Errorf("failed to create store %s: %w", code, err)
	}
	r.stores[code] = s
	return s, nil
}

// List returns all registered store codes in a stable order
func (r *Registry) List() []store.Code {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]store.Code, 0, len(r.stores)+len(r.factories))
	for code := range r.stores {
		codes = append(codes, code)
	}
	for code := range r.factories {
		if _, ok := r.stores[code]; !ok {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	return codes
}

// IsRegistered checks if a store is registered
func (r *Registry) IsRegistered(code store.Code) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stores[code]
	_, hasFactory := r.factories[code]
	return ok || hasFactory
}
