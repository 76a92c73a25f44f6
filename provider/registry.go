package provider

import (
	"sync"

	"github.com/xraph/digest"
)

// Registry maps provider IDs to descriptors and adapters. Registration
// normally happens at startup; the registry is safe for concurrent use
// so availability can be toggled at runtime.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
	adapters    map[string]Adapter
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
		adapters:    make(map[string]Adapter),
	}
}

// Register adds (or replaces) a provider with its adapter.
func (r *Registry) Register(d Descriptor, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.ID] = d
	r.adapters[d.ID] = a
}

// Lookup returns the descriptor and adapter for a provider ID.
// Returns ErrUnknownProvider if the ID is not registered.
func (r *Registry) Lookup(providerID string) (Descriptor, Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[providerID]
	if !ok {
		return Descriptor{}, nil, digest.ErrUnknownProvider
	}
	return d, r.adapters[providerID], nil
}

// Describe returns the descriptor for a provider ID.
func (r *Registry) Describe(providerID string) (Descriptor, error) {
	d, _, err := r.Lookup(providerID)
	return d, err
}

// SetAvailable toggles the availability flag of a registered provider.
func (r *Registry) SetAvailable(providerID string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.descriptors[providerID]
	if !ok {
		return digest.ErrUnknownProvider
	}
	d.Available = available
	r.descriptors[providerID] = d
	return nil
}

// List returns all registered descriptors in unspecified order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	return out
}

// Available returns the IDs of all providers currently marked available.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for pid, d := range r.descriptors {
		if d.Available {
			out = append(out, pid)
		}
	}
	return out
}
