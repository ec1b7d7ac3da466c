// Package service implements user registration and lookup. Registration
// captures the face embedding the identity resolver matches against.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"facegate/internal/user/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/audit"
	"facegate/pkg/requestcontext"
)

// Store is the user persistence contract.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, userID id.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// CorpusInvalidator drops any cached embedding corpus after a write.
type CorpusInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	store       Store
	invalidator CorpusInvalidator
	publisher   audit.Publisher
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithCorpusInvalidator wires cache invalidation after registration.
func WithCorpusInvalidator(inv CorpusInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store is required")
	}
	s := &Service{
		store:     store,
		publisher: audit.NopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user with their face embedding and makes them
// immediately matchable at the gate.
func (s *Service) Register(ctx context.Context, name string, embedding []float64) (*models.User, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len(embedding) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "embedding is required")
	}

	now := requestcontext.Now(ctx)
	user, err := models.NewUser(name, embedding, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store user")
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	s.publisher.Publish(audit.Event{
		Category:  audit.CategoryOperations,
		Timestamp: now,
		UserID:    user.ID,
		Action:    audit.EventUserRegistered,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if user == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s not found", userID)
	}
	return user, nil
}

// List returns all registered users.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}
