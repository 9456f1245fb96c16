package refreshtoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// translateConsumeError converts domain errors from ValidateForConsume to
// sentinel errors per the store boundary contract.
func translateConsumeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrRefreshExpired):
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrExpired)
	case errors.Is(err, models.ErrRefreshAlreadyUsed):
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrAlreadyUsed)
	default:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
	}
}

// InMemoryRefreshTokenStore stores refresh tokens in memory for tests/dev.
type InMemoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshTokenRecord
}

// New constructs an empty in-memory refresh token store.
func New() *InMemoryRefreshTokenStore {
	return &InMemoryRefreshTokenStore{tokens: make(map[string]*models.RefreshTokenRecord)}
}

func (s *InMemoryRefreshTokenStore) Create(_ context.Context, rec *models.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.tokens[rec.Token] = &cp
	return nil
}

// Consume marks the refresh token used if valid. The record is returned even
// on ErrAlreadyUsed so callers can run replay detection against the grant.
func (s *InMemoryRefreshTokenStore) Consume(_ context.Context, token string, now time.Time) (*models.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}
	if err := rec.ValidateForConsume(now); err != nil {
		cp := *rec
		return &cp, translateConsumeError(err)
	}
	rec.MarkUsed(now)
	cp := *rec
	return &cp, nil
}

func (s *InMemoryRefreshTokenStore) MarkRotated(_ context.Context, token, replacement string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok {
		return fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}
	if !rec.Used {
		return errors.New("cannot rotate an unconsumed refresh token")
	}
	rec.RotatedTo = replacement
	return nil
}

// RevokeBySubject removes every refresh token held by the subject, rotated
// replacements included.
func (s *InMemoryRefreshTokenStore) RevokeBySubject(_ context.Context, subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for token, rec := range s.tokens {
		if rec.Grant.Session.Subject == subject {
			delete(s.tokens, token)
			revoked++
		}
	}
	return revoked, nil
}

// DeleteExpired removes tokens expired as of the given time.
func (s *InMemoryRefreshTokenStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for token, rec := range s.tokens {
		if rec.ExpiresAt.Before(now) {
			delete(s.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}
