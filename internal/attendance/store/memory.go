package store

import (
	"context"
	"sync"

	"facegate/internal/attendance/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// MemoryStore is an in-memory attendance ledger for tests and single-node
// development. Entries are append-only; there is deliberately no update or
// delete path.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*models.LogEntry
}

// NewMemory creates an empty in-memory attendance ledger.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Append records a new ledger entry.
func (s *MemoryStore) Append(ctx context.Context, entry *models.LogEntry) error {
	if entry == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "log entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *entry
	s.entries = append(s.entries, &stored)
	return nil
}

// LastForUser returns the user's most recent ledger entry, or nil if the
// user has no history. Direction inference reads this.
func (s *MemoryStore) LastForUser(ctx context.Context, userID id.UserID) (*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *models.LogEntry
	for _, entry := range s.entries {
		if entry.UserID != userID {
			continue
		}
		if last == nil || entry.CreatedAt.After(last.CreatedAt) || entry.CreatedAt.Equal(last.CreatedAt) {
			last = entry
		}
	}
	if last == nil {
		return nil, nil
	}
	found := *last
	return &found, nil
}

// ListByUser returns the user's ledger entries, most recent first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.LogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID == userID {
			found := *s.entries[i]
			result = append(result, &found)
		}
	}
	return result, nil
}

// CountForUser returns the number of ledger entries recorded for a user.
func (s *MemoryStore) CountForUser(ctx context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.entries {
		if entry.UserID == userID {
			count++
		}
	}
	return count, nil
}
