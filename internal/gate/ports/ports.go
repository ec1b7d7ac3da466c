// Package ports defines the collaborator interfaces the gate decision
// engine consumes. Concrete implementations live in the permission,
// attendance, and identity modules.
package ports

import (
	"context"
	"time"

	attmodels "facegate/internal/attendance/models"
	permmodels "facegate/internal/permission/models"
	usermodels "facegate/internal/user/models"
	id "facegate/pkg/domain"
)

// IdentityResolver maps a face embedding to a registered user.
// Returns (nil, nil) when no stored embedding matches.
type IdentityResolver interface {
	Identify(ctx context.Context, embedding []float64) (*usermodels.User, error)
}

// PermissionStore is the engine's view of the permission table.
type PermissionStore interface {
	// ListActive returns every accepted permission whose window contains
	// now, most recent first. More than one result is a data-integrity
	// anomaly the engine tolerates by picking the first.
	ListActive(ctx context.Context, userID id.UserID, now time.Time) ([]*permmodels.Permission, error)

	// FindLastAccepted returns the most recently created accepted
	// permission regardless of window, or nil.
	FindLastAccepted(ctx context.Context, userID id.UserID) (*permmodels.Permission, error)

	// InsertViolation creates a terminal violation permission recording an
	// unauthorized scan.
	InsertViolation(ctx context.Context, userID id.UserID, reason string, now time.Time) (*permmodels.Permission, error)

	// MarkViolation degrades an existing permission to violation, failing
	// if the permission is already terminal.
	MarkViolation(ctx context.Context, permissionID id.PermissionID, reason string) (*permmodels.Permission, error)
}

// AttendanceLedger is the engine's view of the append-only attendance log.
type AttendanceLedger interface {
	Append(ctx context.Context, entry *attmodels.LogEntry) error
	LastForUser(ctx context.Context, userID id.UserID) (*attmodels.LogEntry, error)
}

// Atomic serializes the engine's critical section per user: callbacks for
// the same user run one at a time, callbacks for different users proceed
// independently. Implementations may use per-user locks (in memory) or a
// database transaction with row locks (Postgres).
type Atomic interface {
	RunInUserTx(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error
}
