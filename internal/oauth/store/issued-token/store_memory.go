package issuedtoken

import (
	"context"
	"fmt"
	"sync"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// InMemoryIssuedTokenStore tracks minted JTIs for introspection, revocation,
// and replay response.
type InMemoryIssuedTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*models.IssuedTokenMeta
}

// New constructs an empty in-memory issued-token store.
func New() *InMemoryIssuedTokenStore {
	return &InMemoryIssuedTokenStore{tokens: make(map[string]*models.IssuedTokenMeta)}
}

func (s *InMemoryIssuedTokenStore) Record(_ context.Context, jti string, meta models.IssuedTokenMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := meta
	s.tokens[jti] = &cp
	return nil
}

func (s *InMemoryIssuedTokenStore) Find(_ context.Context, jti string) (*models.IssuedTokenMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.tokens[jti]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	cp := *meta
	return &cp, nil
}

func (s *InMemoryIssuedTokenStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.tokens[jti]
	if !ok {
		return fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	meta.Revoked = true
	return nil
}

// RevokeBySubject revokes every live token for the subject. Used when a
// refresh-token replay proves the grant family is compromised.
func (s *InMemoryIssuedTokenStore) RevokeBySubject(_ context.Context, subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for _, meta := range s.tokens {
		if meta.Subject == subject && !meta.Revoked {
			meta.Revoked = true
			revoked++
		}
	}
	return revoked, nil
}
