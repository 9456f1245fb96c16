package consent

import (
	"context"
	"sync"
)

// InMemoryStore keeps consent records in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewInMemory constructs an empty in-memory consent store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryStore) FindBySubjectClient(_ context.Context, subject, clientID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.Subject == subject && rec.ClientID == clientID {
			out = append(out, rec)
		}
	}
	return out, nil
}
