package audit

import (
	"context"
	"sync"
)

// MemoryStorage keeps events in memory. Intended for tests and local
// development; production deployments plug in a durable Storage.
type MemoryStorage struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends the event.
func (s *MemoryStorage) Store(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of all stored events.
func (s *MemoryStorage) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
