package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"authgate/internal/oauth/models"
	"authgate/pkg/platform/sentinel"
)

// InMemoryDeviceStore keeps pending device authorizations in memory with a
// user-code index for the verification UI. Poll holds one lock across
// validation, gate advancement, and consumption.
type InMemoryDeviceStore struct {
	mu         sync.Mutex
	byDevice   map[string]*models.DeviceAuthorizationRecord
	byUserCode map[string]string
}

// New constructs an empty in-memory device store.
func New() *InMemoryDeviceStore {
	return &InMemoryDeviceStore{
		byDevice:   make(map[string]*models.DeviceAuthorizationRecord),
		byUserCode: make(map[string]string),
	}
}

func (s *InMemoryDeviceStore) Create(_ context.Context, rec *models.DeviceAuthorizationRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.byDevice[rec.DeviceCode] = &cp
	s.byUserCode[rec.UserCode] = rec.DeviceCode
	return nil
}

func (s *InMemoryDeviceStore) FindByUserCode(_ context.Context, userCode string) (*models.DeviceAuthorizationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceCode, ok := s.byUserCode[userCode]
	if !ok {
		return nil, fmt.Errorf("user code not found: %w", sentinel.ErrNotFound)
	}
	rec, ok := s.byDevice[deviceCode]
	if !ok {
		return nil, fmt.Errorf("user code not found: %w", sentinel.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryDeviceStore) Update(_ context.Context, rec *models.DeviceAuthorizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byDevice[rec.DeviceCode]; !ok {
		return fmt.Errorf("device authorization not found: %w", sentinel.ErrNotFound)
	}
	cp := *rec
	s.byDevice[rec.DeviceCode] = &cp
	return nil
}

// Poll validates a token-endpoint poll, advances the slow-down gate, and on
// an authorized record consumes it. All under one lock: two racing polls for
// the same authorized code see one grant and one not-found.
func (s *InMemoryDeviceStore) Poll(_ context.Context, deviceCode string, now time.Time) (*models.DeviceAuthorizationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byDevice[deviceCode]
	if !ok {
		return nil, fmt.Errorf("device authorization not found: %w", sentinel.ErrNotFound)
	}
	if err := rec.ValidateForPoll(now); err != nil {
		rec.AdvancePollGate(now)
		return nil, fmt.Errorf("device poll: %w", err)
	}
	delete(s.byDevice, deviceCode)
	delete(s.byUserCode, rec.UserCode)
	cp := *rec
	return &cp, nil
}

// DeleteExpired removes records expired as of the given time.
func (s *InMemoryDeviceStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, rec := range s.byDevice {
		if rec.ExpiresAt.Before(now) {
			delete(s.byDevice, code)
			delete(s.byUserCode, rec.UserCode)
			deleted++
		}
	}
	return deleted, nil
}
