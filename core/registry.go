package core

import (
	"sort"
	"sync"
)

// Registry is an explicit, name-keyed executor table built at startup and
// passed by reference to components that dispatch by name (e.g. the
// orchestrator workflow). It deliberately replaces any global mutable
// registry.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates a registry pre-populated with the given executors,
// keyed by Name.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{executors: make(map[string]Executor, len(executors))}
	for _, e := range executors {
		r.executors[e.Name()] = e
	}
	return r
}

// Register adds or replaces an executor under its current name.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Name()] = e
}

// Get returns the executor registered under name, if any.
func (r *Registry) Get(name string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered executors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}
