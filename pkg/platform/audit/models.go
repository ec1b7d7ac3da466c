package audit

import (
	"context"
	"time"

	id "facegate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing later without touching
// emitters.
type EventCategory string

const (
	// CategorySecurity covers gate violations and late returns — events
	// relevant to security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine passages and administrative
	// actions, useful for debugging and operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Kept
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category     EventCategory
	Timestamp    time.Time
	UserID       id.UserID
	PermissionID id.PermissionID
	Action       AuditEvent
	Decision     string
	Reason       string
	RequestID    string
	ClientIP     string
	UserAgent    string
}

type AuditEvent string

const (
	// Gate events
	EventGateAuthorized AuditEvent = "gate_authorized"
	EventGateViolation  AuditEvent = "gate_violation"
	EventGateLateReturn AuditEvent = "gate_late_return"

	// Permission events
	EventPermissionRequested AuditEvent = "permission_requested"
	EventPermissionReviewed  AuditEvent = "permission_reviewed"

	// User events
	EventUserRegistered AuditEvent = "user_registered"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher hands events to the audit pipeline without blocking the
// emitting request.
type Publisher interface {
	Publish(event Event)
}
