package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps recent events in a ring for tests and local inspection.
type InMemoryStore struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewInMemoryStore builds a store capped at limit events; zero means 1000.
func NewInMemoryStore(limit int) *InMemoryStore {
	if limit <= 0 {
		limit = 1000
	}
	return &InMemoryStore{limit: limit}
}

func (s *InMemoryStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
	return nil
}

// Events returns a snapshot of stored events.
func (s *InMemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
