// Package service exposes read access to the attendance ledger. Writes only
// happen through the gate engine.
package service

import (
	"context"
	"fmt"

	"facegate/internal/attendance/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// Ledger is the read contract over attendance history.
type Ledger interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.LogEntry, error)
	LastForUser(ctx context.Context, userID id.UserID) (*models.LogEntry, error)
}

type Service struct {
	ledger Ledger
}

func New(ledger Ledger) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("attendance ledger is required")
	}
	return &Service{ledger: ledger}, nil
}

// History returns a user's ledger entries, most recent first.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]*models.LogEntry, error) {
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance history")
	}
	return entries, nil
}

// Last returns the user's most recent ledger entry, or nil when the user
// has never passed the gate.
func (s *Service) Last(ctx context.Context, userID id.UserID) (*models.LogEntry, error) {
	entry, err := s.ledger.LastForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read last attendance entry")
	}
	return entry, nil
}
