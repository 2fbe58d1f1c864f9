package sharedstate

import (
	"sync"

	"github.com/google/uuid"
)

// Registry hands out one Store per run id so independent runs in the same
// process never observe each other's state.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open returns the store for runID, creating it if needed.
func (r *Registry) Open(runID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[runID]; ok {
		return s
	}
	s := New()
	r.stores[runID] = s
	return s
}

// Close drops the store for runID.
func (r *Registry) Close(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, runID)
}

// Len returns the number of open stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
