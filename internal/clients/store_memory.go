package clients

import (
	"context"
	"fmt"
	"sync"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// InMemoryStore keeps client registrations in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*models.ClientInfo
}

// NewInMemory constructs an empty in-memory client store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{clients: make(map[string]*models.ClientInfo)}
}

func (s *InMemoryStore) Save(_ context.Context, client *models.ClientInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *client
	s.clients[client.ClientID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, clientID string) (*models.ClientInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client not found: %w", sentinel.ErrNotFound)
	}
	cp := *client
	return &cp, nil
}
