package stack

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the collection of discovered stacks.
// Replace allows the watcher to swap in a fresh scan without restarting.
type Registry struct {
	mu     sync.RWMutex
	stacks map[string]*Stack
}

// NewRegistry creates a registry from a scan result.
func NewRegistry(stacks []*Stack) *Registry {
	r := &Registry{stacks: make(map[string]*Stack, len(stacks))}
	for _, s := range stacks {
		r.stacks[s.Name] = s
	}
	return r
}

// Get retrieves a stack by name.
func (r *Registry) Get(name string) (*Stack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stack, exists := r.stacks[name]
	if !exists {
		return nil, fmt.Errorf("stack '%s' not found", name)
	}

	return stack, nil
}

// List returns all stack names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.stacks))
	for name := range r.stacks {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of stacks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.stacks)
}

// Replace swaps the registry contents with a fresh scan result.
func (r *Registry) Replace(stacks []*Stack) {
	next := make(map[string]*Stack, len(stacks))
	for _, s := range stacks {
		next[s.Name] = s
	}

	r.mu.Lock()
	r.stacks = next
	r.mu.Unlock()
}
