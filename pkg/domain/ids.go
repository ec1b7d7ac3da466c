// Package domain defines typed identifiers shared across modules. Distinct
// uuid-backed types prevent cross-assignment of user, permission, and
// attendance identifiers at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "facegate/pkg/domain-errors"
)

type (
	// UserID identifies a resident resolved by the identity resolver.
	UserID uuid.UUID
	// PermissionID identifies a leave-and-return permission record.
	PermissionID uuid.UUID
	// AttendanceLogID identifies an append-only attendance ledger entry.
	AttendanceLogID uuid.UUID
)

// NewUserID returns a freshly generated user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewPermissionID returns a freshly generated permission ID.
func NewPermissionID() PermissionID { return PermissionID(uuid.New()) }

// NewAttendanceLogID returns a freshly generated attendance log ID.
func NewAttendanceLogID() AttendanceLogID { return AttendanceLogID(uuid.New()) }

func (id UserID) String() string          { return uuid.UUID(id).String() }
func (id PermissionID) String() string    { return uuid.UUID(id).String() }
func (id AttendanceLogID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id PermissionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AttendanceLogID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Inputs arrive from trust boundaries (HTTP paths, stored
// rows), so rejection happens here rather than in each caller.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be empty", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s id", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be the nil uuid", kind)
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParsePermissionID parses and validates a permission ID from its string form.
func ParsePermissionID(raw string) (PermissionID, error) {
	parsed, err := parseUUID(raw, "permission")
	if err != nil {
		return PermissionID{}, err
	}
	return PermissionID(parsed), nil
}

// ParseAttendanceLogID parses and validates an attendance log ID from its
// string form.
func ParseAttendanceLogID(raw string) (AttendanceLogID, error) {
	parsed, err := parseUUID(raw, "attendance log")
	if err != nil {
		return AttendanceLogID{}, err
	}
	return AttendanceLogID(parsed), nil
}
