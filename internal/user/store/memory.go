package store

import (
	"context"
	"sort"
	"sync"

	"facegate/internal/user/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// MemoryStore is an in-memory user store for tests and single-node
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// NewMemory creates an empty in-memory user store.
func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[id.UserID]*models.User)}
}

// Create stores a new user.
func (s *MemoryStore) Create(ctx context.Context, u *models.User) error {
	if u == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "user %s already exists", u.ID)
	}
	stored := *u
	stored.Embedding = append([]float64(nil), u.Embedding...)
	s.users[u.ID] = &stored
	return nil
}

// GetByID returns the user with the given id, or nil if absent.
func (s *MemoryStore) GetByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	found := *u
	found.Embedding = append([]float64(nil), u.Embedding...)
	return &found, nil
}

// List returns all users including their embeddings, ordered by creation
// time then id for determinism. The identity resolver matches against this
// corpus.
func (s *MemoryStore) List(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		found := *u
		found.Embedding = append([]float64(nil), u.Embedding...)
		result = append(result, &found)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}
