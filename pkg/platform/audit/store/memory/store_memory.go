package memory

import (
	"context"
	"sync"

	audit "facegate/pkg/platform/audit"
)

// Store keeps audit events in memory. Tests and development use this;
// production uses the Postgres store.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far.
func (s *Store) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]audit.Event, len(s.events))
	copy(snapshot, s.events)
	return snapshot
}
