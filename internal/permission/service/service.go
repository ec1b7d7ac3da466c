// Package service implements the administrative permission workflow:
// residents file leave requests, administrators review them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"facegate/internal/permission/models"
	usermodels "facegate/internal/user/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/audit"
	"facegate/pkg/requestcontext"
)

// Store is the permission persistence contract this service needs.
type Store interface {
	Create(ctx context.Context, p *models.Permission) error
	GetByID(ctx context.Context, permissionID id.PermissionID) (*models.Permission, error)
	UpdateStatus(ctx context.Context, permissionID id.PermissionID, next models.PermissionStatus) (*models.Permission, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Permission, error)
	List(ctx context.Context, status *models.PermissionStatus) ([]*models.Permission, error)
}

// UserStore resolves user ids filed on leave requests.
type UserStore interface {
	GetByID(ctx context.Context, userID id.UserID) (*usermodels.User, error)
}

type Service struct {
	store     Store
	users     UserStore
	publisher audit.Publisher
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(store Store, users UserStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("permission store is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	s := &Service{
		store:     store,
		users:     users,
		publisher: audit.NopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestLeave files a waiting permission for review.
func (s *Service) RequestLeave(ctx context.Context, userID id.UserID, reason string, start, end time.Time) (*models.Permission, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if user == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s not found", userID)
	}

	now := requestcontext.Now(ctx)
	permission, err := models.NewLeaveRequest(userID, reason, start, end, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, permission); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store leave request")
	}

	s.publisher.Publish(audit.Event{
		Category:     audit.CategoryOperations,
		Timestamp:    now,
		UserID:       userID,
		PermissionID: permission.ID,
		Action:       audit.EventPermissionRequested,
		Reason:       reason,
		RequestID:    requestcontext.RequestID(ctx),
		ClientIP:     requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
	})
	s.logger.InfoContext(ctx, "leave request filed",
		"user_id", userID,
		"permission_id", permission.ID,
	)
	return permission, nil
}

// Review applies an administrative decision. The store enforces the state
// machine: only waiting permissions can be accepted or denied, and terminal
// states never change.
func (s *Service) Review(ctx context.Context, permissionID id.PermissionID, next models.PermissionStatus) (*models.Permission, error) {
	if next == models.StatusWaiting {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "review cannot return a permission to waiting")
	}

	updated, err := s.store.UpdateStatus(ctx, permissionID, next)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	s.publisher.Publish(audit.Event{
		Category:     audit.CategoryOperations,
		Timestamp:    now,
		UserID:       updated.UserID,
		PermissionID: updated.ID,
		Action:       audit.EventPermissionReviewed,
		Decision:     string(next),
		RequestID:    requestcontext.RequestID(ctx),
		ClientIP:     requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
	})
	s.logger.InfoContext(ctx, "permission reviewed",
		"permission_id", updated.ID,
		"status", next,
		"admin", requestcontext.AdminSubject(ctx),
	)
	return updated, nil
}

// Get returns a single permission.
func (s *Service) Get(ctx context.Context, permissionID id.PermissionID) (*models.Permission, error) {
	permission, err := s.store.GetByID(ctx, permissionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load permission")
	}
	if permission == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "permission %s not found", permissionID)
	}
	return permission, nil
}

// ListByUser returns a user's permissions, most recent first.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Permission, error) {
	permissions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list permissions")
	}
	return permissions, nil
}

// List returns permissions across users, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *models.PermissionStatus) ([]*models.Permission, error) {
	permissions, err := s.store.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list permissions")
	}
	return permissions, nil
}
