package adapter

import (
	"github.com/rotisserie/eris"
)

// Registry maps adapter names to their implementations.
type Registry struct {
	adapters map[string]Adapter
	order    []string // registration order for deterministic iteration
}

// NewRegistry creates a registry populated with every known layout.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter),
	}

	r.Register(&EUFleet{})
	r.Register(&FLState{})
	r.Register(&LicenseRegistry{})
	r.Register(&NordicRegistry{})
	r.Register(&XLSXRegistry{})

	return r
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) {
	name := a.Name()
	r.adapters[name] = a
	r.order = append(r.order, name)
}

// Get returns an adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, eris.Errorf("adapter: unknown adapter %q", name)
	}
	return a, nil
}

// Names returns all registered adapter names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
