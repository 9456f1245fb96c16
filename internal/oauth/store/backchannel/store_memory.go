package backchannel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// InMemoryBackChannelStore keeps pending CIBA requests in memory.
type InMemoryBackChannelStore struct {
	mu       sync.Mutex
	requests map[string]*models.BackChannelRequestRecord
}

// New constructs an empty in-memory back-channel store.
func New() *InMemoryBackChannelStore {
	return &InMemoryBackChannelStore{requests: make(map[string]*models.BackChannelRequestRecord)}
}

func (s *InMemoryBackChannelStore) Create(_ context.Context, rec *models.BackChannelRequestRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.requests[rec.AuthReqID] = &cp
	return nil
}

func (s *InMemoryBackChannelStore) Find(_ context.Context, authReqID string) (*models.BackChannelRequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.requests[authReqID]
	if !ok {
		return nil, fmt.Errorf("back-channel request not found: %w", sentinel.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryBackChannelStore) Update(_ context.Context, rec *models.BackChannelRequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[rec.AuthReqID]; !ok {
		return fmt.Errorf("back-channel request not found: %w", sentinel.ErrNotFound)
	}
	cp := *rec
	s.requests[rec.AuthReqID] = &cp
	return nil
}

// Poll mirrors the device store: validate, advance the gate, consume once.
func (s *InMemoryBackChannelStore) Poll(_ context.Context, authReqID string, now time.Time) (*models.BackChannelRequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.requests[authReqID]
	if !ok {
		return nil, fmt.Errorf("back-channel request not found: %w", sentinel.ErrNotFound)
	}
	if err := rec.ValidateForPoll(now); err != nil {
		rec.AdvancePollGate(now)
		return nil, fmt.Errorf("back-channel poll: %w", err)
	}
	delete(s.requests, authReqID)
	cp := *rec
	return &cp, nil
}

// DeleteExpired removes records expired as of the given time.
func (s *InMemoryBackChannelStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, rec := range s.requests {
		if rec.ExpiresAt.Before(now) {
			delete(s.requests, id)
			deleted++
		}
	}
	return deleted, nil
}
