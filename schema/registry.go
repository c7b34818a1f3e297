package schema

import (
	"fmt"
	"sync"
)

// Registry holds entity definitions and the schemas built from them. Schemas
// are built lazily on first lookup and shared for the process lifetime; the
// build path is mutex guarded so first lookups from concurrent goroutines are
// safe.
type Registry struct {
	mu          sync.Mutex
	namer       Namer
	definitions map[string]*Definition
	schemas     map[string]*Schema
	building    map[string]bool
}

// NewRegistry creates an empty registry with the default naming strategy.
func NewRegistry() *Registry {
	return &Registry{
		namer:       NamingStrategy{},
		definitions: map[string]*Definition{},
		schemas:     map[string]*Schema{},
		building:    map[string]bool{},
	}
}

// SetNamer replaces the naming strategy. Must be called before any lookup.
func (r *Registry) SetNamer(namer Namer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namer = namer
}

// Register adds entity definitions. Registering does not build; schemas are
// built on first Lookup.
func (r *Registry) Register(defs ...*Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range defs {
		r.definitions[def.name] = def
	}
}

// Lookup returns the schema for an entity type, building and caching it on
// first reference.
func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupLocked(name)
}

func (r *Registry) lookupLocked(name string) (*Schema, error) {
	if s, ok := r.schemas[name]; ok {
		return s, nil
	}

	def, ok := r.definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	if r.building[name] {
		return nil, fmt.Errorf("%w: %s", ErrRelationCycle, name)
	}

	r.building[name] = true
	defer delete(r.building, name)

	s, err := def.build(r)
	if err != nil {
		return nil, err
	}

	r.schemas[name] = s
	return s, nil
}

// Reset drops every cached schema and definition. Test isolation only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions = map[string]*Definition{}
	r.schemas = map[string]*Schema{}
	r.building = map[string]bool{}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process wide registry.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds definitions to the process wide registry.
func Register(defs ...*Definition) {
	defaultRegistry.Register(defs...)
}

// Lookup resolves an entity schema from the process wide registry.
func Lookup(name string) (*Schema, error) {
	return defaultRegistry.Lookup(name)
}

// Reset clears the process wide registry. Test isolation only.
func Reset() {
	defaultRegistry.Reset()
}
