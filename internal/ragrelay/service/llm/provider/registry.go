package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/llm/provider/spi"
)

// Registry is a thread-safe registry of provider plugin factories.
type Registry struct {
	mu       sync.RWMutex
	registry map[string]spi.PluginFactory
}

func NewRegistry() *Registry {
	return &Registry{
		registry: make(map[string]spi.PluginFactory),
	}
}

// Register adds a provider plugin factory to the registry.
// Returns an error if a plugin with the same name is already registered.
func (r *Registry) Register(name string, factory spi.PluginFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(name, factory)
}

func (r *Registry) register(name string, factory spi.PluginFactory) error {
	if _, ok := r.registry[name]; ok {
		return fmt.Errorf("provider %s is already registered", name)
	}
	r.registry[name] = factory
	return nil
}

// MustRegister is Register that panics on a duplicate name.
func (r *Registry) MustRegister(name string, factory spi.PluginFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the plugin factory for the given name.
func (r *Registry) Get(name string) (spi.PluginFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("provider %s is not registered", name)
	}
	return factory, nil
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge copies every factory of other into r. It fails on the first name
// both registries share, leaving earlier copies in place.
func (r *Registry) Merge(other *Registry) error {
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, factory := range other.registry {
		if err := r.register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registry)
}
