package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"facegate/internal/permission/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// MemoryStore is an in-memory permission store for tests and single-node
// development. The Postgres store is authoritative in production.
type MemoryStore struct {
	mu          sync.RWMutex
	permissions map[id.PermissionID]*models.Permission
}

// NewMemory creates an empty in-memory permission store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		permissions: make(map[id.PermissionID]*models.Permission),
	}
}

// Create stores a new permission record.
func (s *MemoryStore) Create(ctx context.Context, p *models.Permission) error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "permission is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.permissions[p.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "permission %s already exists", p.ID)
	}
	stored := *p
	s.permissions[p.ID] = &stored
	return nil
}

// GetByID returns the permission with the given id, or nil if absent.
func (s *MemoryStore) GetByID(ctx context.Context, permissionID id.PermissionID) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permissionID]
	if !ok {
		return nil, nil
	}
	found := *p
	return &found, nil
}

// ListActive returns every accepted permission whose window contains now,
// ordered most recent first (created_at desc, ties by id desc). The gate
// engine treats more than one result as a data-integrity anomaly.
func (s *MemoryStore) ListActive(ctx context.Context, userID id.UserID, now time.Time) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*models.Permission
	for _, p := range s.permissions {
		if p.UserID == userID && p.IsActiveAt(now) {
			found := *p
			active = append(active, &found)
		}
	}
	sortMostRecentFirst(active)
	return active, nil
}

// FindLastAccepted returns the user's most recently created accepted
// permission regardless of window, or nil if none exists.
func (s *MemoryStore) FindLastAccepted(ctx context.Context, userID id.UserID) (*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accepted []*models.Permission
	for _, p := range s.permissions {
		if p.UserID == userID && p.Status == models.StatusAccepted {
			found := *p
			accepted = append(accepted, &found)
		}
	}
	if len(accepted) == 0 {
		return nil, nil
	}
	sortMostRecentFirst(accepted)
	return accepted[0], nil
}

// InsertViolation creates a terminal violation permission for an
// unauthorized scan.
func (s *MemoryStore) InsertViolation(ctx context.Context, userID id.UserID, reason string, now time.Time) (*models.Permission, error) {
	violation, err := models.NewViolation(userID, reason, now)
	if err != nil {
		return nil, err
	}
	if err := s.Create(ctx, violation); err != nil {
		return nil, err
	}
	return violation, nil
}

// MarkViolation transitions an existing permission to violation, enforcing
// the state machine: terminal permissions stay untouched.
func (s *MemoryStore) MarkViolation(ctx context.Context, permissionID id.PermissionID, reason string) (*models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permissions[permissionID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "permission %s not found", permissionID)
	}
	if !p.Status.CanTransitionTo(models.StatusViolation) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "permission %s cannot transition from %s to violation", permissionID, p.Status)
	}
	p.Status = models.StatusViolation
	p.Reason = reason
	updated := *p
	return &updated, nil
}

// UpdateStatus applies an administrative status transition.
func (s *MemoryStore) UpdateStatus(ctx context.Context, permissionID id.PermissionID, next models.PermissionStatus) (*models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permissions[permissionID]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "permission %s not found", permissionID)
	}
	if !p.Status.CanTransitionTo(next) {
		return nil, dErrors.Newf(dErrors.CodeConflict, "permission %s cannot transition from %s to %s", permissionID, p.Status, next)
	}
	p.Status = next
	updated := *p
	return &updated, nil
}

// ListByUser returns all of a user's permissions, most recent first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Permission
	for _, p := range s.permissions {
		if p.UserID == userID {
			found := *p
			result = append(result, &found)
		}
	}
	sortMostRecentFirst(result)
	return result, nil
}

// List returns all permissions, optionally filtered by status, most recent
// first.
func (s *MemoryStore) List(ctx context.Context, status *models.PermissionStatus) ([]*models.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Permission
	for _, p := range s.permissions {
		if status != nil && p.Status != *status {
			continue
		}
		found := *p
		result = append(result, &found)
	}
	sortMostRecentFirst(result)
	return result, nil
}

// sortMostRecentFirst orders by created_at descending with ties broken by id
// descending, keeping lookups deterministic.
func sortMostRecentFirst(permissions []*models.Permission) {
	sort.Slice(permissions, func(i, j int) bool {
		if !permissions[i].CreatedAt.Equal(permissions[j].CreatedAt) {
			return permissions[i].CreatedAt.After(permissions[j].CreatedAt)
		}
		return permissions[i].ID.String() > permissions[j].ID.String()
	})
}
