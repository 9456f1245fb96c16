package par

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// RequestURIPrefix is the URN namespace for stored pushed requests.
const RequestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// InMemoryPARStore keeps pushed authorization requests in memory.
// Consumption deletes under the same lock as the lookup; a replayed
// request_uri reads as absent.
type InMemoryPARStore struct {
	mu       sync.Mutex
	requests map[string]storedRequest
}

type storedRequest struct {
	request   models.AuthorizationRequest
	expiresAt time.Time
}

// New constructs an empty in-memory PAR store.
func New() *InMemoryPARStore {
	return &InMemoryPARStore{requests: make(map[string]storedRequest)}
}

func (s *InMemoryPARStore) Store(_ context.Context, req models.AuthorizationRequest, ttl time.Duration) (string, error) {
	requestURI := RequestURIPrefix + uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[requestURI] = storedRequest{request: req, expiresAt: time.Now().Add(ttl)}
	return requestURI, nil
}

func (s *InMemoryPARStore) Consume(_ context.Context, requestURI string) (*models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[requestURI]
	if !ok {
		return nil, fmt.Errorf("request_uri not found: %w", sentinel.ErrNotFound)
	}
	delete(s.requests, requestURI)
	if time.Now().After(stored.expiresAt) {
		return nil, fmt.Errorf("request_uri not found: %w", sentinel.ErrNotFound)
	}
	req := stored.request
	return &req, nil
}
