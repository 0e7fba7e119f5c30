package ai

import (
	"fmt"
	"sort"
	"sync"
)

// Registry indexes Coordinators by character ID.
//
// Invariant: each character ID is registered at most once, so no two
// characters ever share engine state. The mutex guards only the map; each
// Coordinator is still driven by a single goroutine.
type Registry struct {
	mu     sync.RWMutex
	coords map[string]*Coordinator
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{coords: make(map[string]*Coordinator)}
}

// Register creates and stores a Coordinator for characterID.
//
// Precondition: characterID must not be empty.
// Postcondition: returns error on character ID collision.
func (r *Registry) Register(characterID string, opts Options, deps Deps) (*Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.coords[characterID]; exists {
		return nil, fmt.Errorf("ai.Registry: character %q already registered", characterID)
	}
	c := NewCoordinator(characterID, opts, deps)
	r.coords[characterID] = c
	return c, nil
}

// CoordinatorFor returns the Coordinator for characterID, or false if not
// registered.
func (r *Registry) CoordinatorFor(characterID string) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coords[characterID]
	return c, ok
}

// Remove drops characterID, resetting its Coordinator.
//
// Postcondition: false when characterID was not registered.
func (r *Registry) Remove(characterID string) bool {
	r.mu.Lock()
	c, ok := r.coords[characterID]
	delete(r.coords, characterID)
	r.mu.Unlock()
	if ok {
		c.Reset()
	}
	return ok
}

// IDs returns the registered character IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.coords))
	for id := range r.coords {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered characters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.coords)
}
