// Package registry holds the server-level scope and resource definitions the
// validator chains resolve against.
package registry

import (
	"context"
	"sync"

	"authgate/internal/oauth/models"
)

// InMemory is a concurrency-safe scope and resource registry. Definitions
// are loaded at startup (or by an admin surface) and read on every request.
type InMemory struct {
	mu        sync.RWMutex
	scopes    map[string]models.ScopeDefinition
	resources map[string]models.ResourceDefinition
}

// NewInMemory constructs an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{
		scopes:    make(map[string]models.ScopeDefinition),
		resources: make(map[string]models.ResourceDefinition),
	}
}

// AddScope registers a global scope.
func (r *InMemory) AddScope(def models.ScopeDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[def.Name] = def
}

// AddResource registers a resource indicator target.
func (r *InMemory) AddResource(def models.ResourceDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[def.URI] = def
}

func (r *InMemory) FindScope(_ context.Context, name string) (*models.ScopeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.scopes[name]
	if !ok {
		return nil, nil
	}
	cp := def
	return &cp, nil
}

func (r *InMemory) FindResource(_ context.Context, uri string) (*models.ResourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.resources[uri]
	if !ok {
		return nil, nil
	}
	cp := def
	return &cp, nil
}
