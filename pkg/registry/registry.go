package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Constructor builds a task instance for one action, bound to state.
type Constructor func(name string, state domain.State) (ports.TaskInstance, error)

// Registry maps action names to constructors. It implements ports.TaskFactory.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

var _ ports.TaskFactory = (*Registry)(nil)

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[string]Constructor),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(action string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[action] = ctor
}

// Has reports whether action is registered.
func (r *Registry) Has(action string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[action]
	return ok
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Create looks up action and builds an instance bound to state.
// Returns an error wrapping domain.ErrUnknownAction if the action is not found.
func (r *Registry) Create(action, name string, state domain.State) (ports.TaskInstance, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[action]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}

	return ctor(name, state)
}
