package authorizationcode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// InMemoryGrantStore keeps authorization codes in memory for tests/dev.
// Single-use consumption holds one lock across lookup and delete, so two
// racing redeemers can never both win.
type InMemoryGrantStore struct {
	mu     sync.Mutex
	grants map[string]storedGrant
}

type storedGrant struct {
	grant     models.AuthorizedGrant
	expiresAt time.Time
}

// New constructs an empty in-memory grant store.
func New() *InMemoryGrantStore {
	return &InMemoryGrantStore{grants: make(map[string]storedGrant)}
}

func (s *InMemoryGrantStore) Store(_ context.Context, grant models.AuthorizedGrant, ttl time.Duration) (string, error) {
	code := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[code] = storedGrant{grant: grant, expiresAt: time.Now().Add(ttl)}
	return code, nil
}

func (s *InMemoryGrantStore) FetchAndRemove(_ context.Context, code string) (*models.AuthorizedGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.grants[code]
	if !ok {
		return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
	}
	delete(s.grants, code)
	if time.Now().After(stored.expiresAt) {
		// Expired entries read the same as absent ones.
		return nil, fmt.Errorf("authorization code not found: %w", sentinel.ErrNotFound)
	}
	grant := stored.grant
	return &grant, nil
}

// DeleteExpired removes all codes expired as of the given time. The time is
// injected for testability.
func (s *InMemoryGrantStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, stored := range s.grants {
		if stored.expiresAt.Before(now) {
			delete(s.grants, code)
			deleted++
		}
	}
	return deleted, nil
}
