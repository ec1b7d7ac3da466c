package models

import (
	"time"

	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// PermissionStatus is the lifecycle state of a leave-and-return permission.
type PermissionStatus string

const (
	// StatusWaiting: filed by a resident, pending administrator review.
	StatusWaiting PermissionStatus = "waiting"
	// StatusAccepted: approved; the permission window is authoritative.
	StatusAccepted PermissionStatus = "accepted"
	// StatusDenied: rejected by an administrator.
	StatusDenied PermissionStatus = "denied"
	// StatusViolation: terminal. Set administratively or by the gate engine
	// (scan without an active permission, or a late return).
	StatusViolation PermissionStatus = "violation"
)

// IsValid checks if the status is one of the supported enum values.
func (s PermissionStatus) IsValid() bool {
	switch s {
	case StatusWaiting, StatusAccepted, StatusDenied, StatusViolation:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s PermissionStatus) IsTerminal() bool {
	return s == StatusDenied || s == StatusViolation
}

// CanTransitionTo encodes the permission state machine exhaustively.
// waiting may move to any reviewed state; accepted may only degrade to
// violation; denied and violation are terminal.
func (s PermissionStatus) CanTransitionTo(next PermissionStatus) bool {
	if !next.IsValid() || s == next {
		return false
	}
	switch s {
	case StatusWaiting:
		return next == StatusAccepted || next == StatusDenied || next == StatusViolation
	case StatusAccepted:
		return next == StatusViolation
	case StatusDenied, StatusViolation:
		return false
	}
	return false
}

// String returns the string representation.
func (s PermissionStatus) String() string {
	return string(s)
}

// ParsePermissionStatus creates a PermissionStatus from a string, validating it.
func ParsePermissionStatus(raw string) (PermissionStatus, error) {
	s := PermissionStatus(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid permission status %q", raw)
	}
	return s, nil
}

// Permission represents an authorized (or violated) leave-and-return window.
type Permission struct {
	ID        id.PermissionID  `json:"id"`
	UserID    id.UserID        `json:"user_id"`
	Status    PermissionStatus `json:"status"`
	Reason    string           `json:"reason"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewLeaveRequest creates a waiting permission with domain invariant validation.
func NewLeaveRequest(userID id.UserID, reason string, start, end, now time.Time) (*Permission, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id cannot be nil")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "reason cannot be empty")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "end_time must be after start_time")
	}

	return &Permission{
		ID:        id.NewPermissionID(),
		UserID:    userID,
		Status:    StatusWaiting,
		Reason:    reason,
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
	}, nil
}

// NewViolation creates a terminal violation permission recording an
// unauthorized gate scan. The window collapses to the scan instant.
func NewViolation(userID id.UserID, reason string, now time.Time) (*Permission, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id cannot be nil")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "reason cannot be empty")
	}

	return &Permission{
		ID:        id.NewPermissionID(),
		UserID:    userID,
		Status:    StatusViolation,
		Reason:    reason,
		StartTime: now,
		EndTime:   now,
		CreatedAt: now,
	}, nil
}

// IsActiveAt reports whether the permission authorizes passage at the given
// instant. "Active" is derived, never stored.
func (p *Permission) IsActiveAt(now time.Time) bool {
	return p.Status == StatusAccepted && !now.Before(p.StartTime) && !now.After(p.EndTime)
}

// IsOverdueAt reports whether an accepted permission's window has elapsed,
// i.e. a return at this instant is late.
func (p *Permission) IsOverdueAt(now time.Time) bool {
	return p.Status == StatusAccepted && now.After(p.EndTime)
}
