package hashfunc

import (
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/imagehash"
)

// Algorithm computes and parses hash values for one parameterization.
type Algorithm interface {
	Hash(img image.Image) (imagehash.Value, error)
	Parse(text string) (imagehash.Value, error)
}

// Constructor binds parameters to an algorithm. It should reject parameter
// values the algorithm cannot honour.
type Constructor func(p Params) (Algorithm, error)

// Registration describes an algorithm in the registry.
type Registration struct {
	// Name is the qualified name stored in the database, e.g. "imagehash.phash".
	Name string
	// DefaultHashSize is recorded when an identity is created without one.
	DefaultHashSize int
	// Params lists the accepted parameter names in positional order.
	Params []string
	New    Constructor
}

// Registry maps algorithm names to constructors.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds reg. Registering a name twice fails.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" || reg.New == nil {
		return fmt.Errorf("register: name and constructor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[reg.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAlgorithm, reg.Name)
	}
	reg.Params = slices.Clone(reg.Params)
	r.entries[reg.Name] = reg
	return nil
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return reg, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the shared registry of built-in algorithms.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, reg := range builtinRegistrations() {
			if err := defaultRegistry.Register(reg); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}
