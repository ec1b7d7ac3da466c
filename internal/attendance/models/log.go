package models

import (
	"time"

	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// Direction is the direction of travel through the gate.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// IsValid checks if the direction is one of the supported values.
func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Opposite returns the reverse direction. Direction inference relies on
// this: the next action is the opposite of the last recorded one.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// String returns the string representation.
func (d Direction) String() string {
	return string(d)
}

// ParseDirection creates a Direction from a string, validating it.
func ParseDirection(raw string) (Direction, error) {
	d := Direction(raw)
	if !d.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid direction %q: must be IN or OUT", raw)
	}
	return d, nil
}

// LogEntry is one append-only attendance record. Every successful gate scan
// produces exactly one entry tied to exactly one permission; entries are
// never mutated or deleted.
type LogEntry struct {
	ID           id.AttendanceLogID `json:"id"`
	PermissionID id.PermissionID    `json:"permission_id"`
	UserID       id.UserID          `json:"user_id"`
	Type         Direction          `json:"type"`
	CreatedAt    time.Time          `json:"created_at"`
}

// NewLogEntry creates a LogEntry with domain invariant validation.
func NewLogEntry(permissionID id.PermissionID, userID id.UserID, direction Direction, now time.Time) (*LogEntry, error) {
	if permissionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "permission_id cannot be nil")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id cannot be nil")
	}
	if !direction.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid direction")
	}

	return &LogEntry{
		ID:           id.NewAttendanceLogID(),
		PermissionID: permissionID,
		UserID:       userID,
		Type:         direction,
		CreatedAt:    now,
	}, nil
}
