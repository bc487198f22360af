package connector

import (
	"fmt"
	"sync"
)

// Factory builds a connector instance from its static endpoint
// configuration. Instances are immutable after construction and safe to
// share across concurrently executing calls.
type Factory func(endpoints Endpoints) Connector

// Registry manages all connector implementations. Registration happens at
// startup (adapter packages register in init); lookups are the single
// string-keyed dispatch point per call.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a connector factory to the registry.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get retrieves a connector factory by name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("connector '%s' is not registered", name)
	}

	return factory, nil
}

// CreateConnector instantiates a connector with its endpoints.
func (r *Registry) CreateConnector(name string, endpoints Endpoints) (Connector, error) {
	factory, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	return factory(endpoints), nil
}

// Names returns all registered connector names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// DefaultRegistry is the global default connector registry.
var DefaultRegistry = NewRegistry()

// Register registers a connector with the default registry.
func Register(name string, factory Factory) {
	DefaultRegistry.Register(name, factory)
}

// Get retrieves a connector factory from the default registry.
func Get(name string) (Factory, error) {
	return DefaultRegistry.Get(name)
}

// CreateConnector creates a connector instance from the default registry.
func CreateConnector(name string, endpoints Endpoints) (Connector, error) {
	return DefaultRegistry.CreateConnector(name, endpoints)
}
