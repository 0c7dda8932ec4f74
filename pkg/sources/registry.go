package sources

import (
	"sync"

	"github.com/Ramsey-B/baobab/pkg/models"
)

// Registry holds the registered adapters keyed by declared name.
// Iteration order is registration order so runs are deterministic.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under its declared name. Re-registering a
// name replaces the previous adapter but keeps its position.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Identity().Name
	if _, exists := r.adapters[name]; !exists {
		r.order = append(r.order, name)
	}
	r.adapters[name] = adapter
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	return adapter, ok
}

// All returns the adapters in registration order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		adapters = append(adapters, r.adapters[name])
	}
	return adapters
}

// List returns the identities of the registered adapters in
// registration order.
func (r *Registry) List() []models.AdapterIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := make([]models.AdapterIdentity, 0, len(r.order))
	for _, name := range r.order {
		identities = append(identities, r.adapters[name].Identity())
	}
	return identities
}
