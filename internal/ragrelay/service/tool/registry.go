package tool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/kiosk404/ragrelay/pkg/logger"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrToolDisabled     = errors.New("tool disabled")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Registry maps tool names to descriptors.
//
// It is built once at process start and then passed to every session.
// Reads are safe from any number of goroutines; registering tools while
// sessions are running is not supported (a concurrent Register is still
// memory safe, but sessions may observe either the old or the new entry).
type Registry struct {
	mu sync.RWMutex

	descriptors map[string]Descriptor
	schemas     map[string]*jsonschema.Schema

	// order preserves first-registration order of tool names.
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
		schemas:     make(map[string]*jsonschema.Schema),
	}
}

// Register stores a copy of d under name. Registering an existing name
// replaces the previous descriptor (last writer wins) and keeps its
// position in List.
func (r *Registry) Register(name string, d Descriptor) error {
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	d.Name = name
	if len(d.ParameterSchema) == 0 {
		d.ParameterSchema = BuildParameterSchema(d.Parameters)
	}
	schema, err := compileSchema(name, d.ParameterSchema)
	if err != nil {
		return err
	}
	if len(d.ResultSchema) > 0 {
		if _, err := compileSchema(name+".result", d.ResultSchema); err != nil {
			return err
		}
	}

	var stored Descriptor
	if err := copier.CopyWithOption(&stored, &d, copier.Option{DeepCopy: true}); err != nil {
		return fmt.Errorf("copy descriptor of tool %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.descriptors[name]; ok {
		logger.Warn("[ToolRegistry] tool %q already registered, overriding", name)
	} else {
		r.order = append(r.order, name)
	}
	r.descriptors[name] = stored
	r.schemas[name] = schema
	return nil
}

// MustRegister is Register for startup code that cannot continue on error.
func (r *Registry) MustRegister(name string, d Descriptor) {
	if err := r.Register(name, d); err != nil {
		panic(err)
	}
}

// Get returns a copy of the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	d, ok := r.descriptors[name]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, false
	}
	return copyDescriptor(d), true
}

// List returns tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Descriptors returns copies of all descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, copyDescriptor(r.descriptors[name]))
	}
	return result
}

// Enabled returns the enabled descriptors in registration order.
func (r *Registry) Enabled() []Descriptor {
	all := r.Descriptors()
	result := all[:0]
	for _, d := range all {
		if d.Enabled {
			result = append(result, d)
		}
	}
	return result
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// SetEnabled toggles a registered tool. Startup only, like Register.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.descriptors[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	d.Enabled = enabled
	r.descriptors[name] = d
	return nil
}

// Instantiate builds a new instance of an enabled tool.
func (r *Registry) Instantiate(name string) (Tool, error) {
	r.mu.RLock()
	d, ok := r.descriptors[name]
	r.mu.RUnlock()

	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	case !d.Enabled:
		return nil, fmt.Errorf("%w: %s", ErrToolDisabled, name)
	case d.Factory == nil:
		return nil, fmt.Errorf("tool %s has no factory", name)
	}
	return d.Factory()
}

// ValidateArguments checks args against the parameter schema of name.
func (r *Registry) ValidateArguments(name string, args map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if err := validateArguments(schema, args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}
	return nil
}

func copyDescriptor(d Descriptor) Descriptor {
	var out Descriptor
	if err := copier.CopyWithOption(&out, &d, copier.Option{DeepCopy: true}); err != nil {
		return d
	}
	return out
}
