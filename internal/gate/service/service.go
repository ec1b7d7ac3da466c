// Package service implements the gate decision engine: one embedding in,
// one recorded decision out.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	attmodels "facegate/internal/attendance/models"
	"facegate/internal/gate"
	"facegate/internal/gate/metrics"
	"facegate/internal/gate/ports"
	permmodels "facegate/internal/permission/models"
	usermodels "facegate/internal/user/models"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/audit"
	"facegate/pkg/requestcontext"
)

const lateReturnReason = "late return"

// Service screens gate scans. Every successful screening, including
// violations and late returns, commits exactly one attendance log entry
// tied to exactly one permission.
type Service struct {
	resolver    ports.IdentityResolver
	permissions ports.PermissionStore
	ledger      ports.AttendanceLedger
	atomic      ports.Atomic
	publisher   audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(resolver ports.IdentityResolver, permissions ports.PermissionStore, ledger ports.AttendanceLedger, atomic ports.Atomic, opts ...Option) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("identity resolver is required")
	}
	if permissions == nil {
		return nil, fmt.Errorf("permission store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("attendance ledger is required")
	}
	if atomic == nil {
		return nil, fmt.Errorf("atomic runner is required")
	}

	s := &Service{
		resolver:    resolver,
		permissions: permissions,
		ledger:      ledger,
		atomic:      atomic,
		publisher:   audit.NopPublisher{},
		metrics:     metrics.NewNop(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("facegate/gate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Screen decides a single gate scan. The read-check-write section runs
// under the per-user atomic runner so concurrent scans for the same user
// serialize; scans for different users proceed in parallel.
func (s *Service) Screen(ctx context.Context, req gate.ScreenRequest) (*gate.ScreenResult, error) {
	ctx, span := s.tracer.Start(ctx, "gate.Screen")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.ScreenDuration.Observe(time.Since(start).Seconds())
	}()

	if err := req.Validate(); err != nil {
		s.metrics.Decisions.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	user, err := s.resolver.Identify(ctx, req.Embedding)
	if err != nil {
		s.metrics.Decisions.WithLabelValues("error").Inc()
		return nil, err
	}
	if user == nil {
		s.metrics.Decisions.WithLabelValues("not_found").Inc()
		return nil, dErrors.New(dErrors.CodeNotFound, "face not recognized")
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	now := requestcontext.Now(ctx)

	var result *gate.ScreenResult
	err = s.atomic.RunInUserTx(ctx, user.ID, func(ctx context.Context) error {
		direction, err := s.resolveDirection(ctx, user, req.Type)
		if err != nil {
			return err
		}
		result, err = s.decide(ctx, user, direction, now)
		return err
	})
	if err != nil {
		s.metrics.Decisions.WithLabelValues("error").Inc()
		return nil, err
	}

	s.metrics.Decisions.WithLabelValues(outcomeLabel(result.Outcome)).Inc()
	s.publishDecision(ctx, result, now)
	s.logger.InfoContext(ctx, "gate scan screened",
		"user_id", user.ID,
		"outcome", result.Outcome,
		"direction", result.Direction,
		"permission_id", result.PermissionID,
	)
	return result, nil
}

// resolveDirection applies the caller's explicit direction, or infers the
// next one from attendance history: the opposite of the last recorded
// entry, OUT when there is no history. Read-only.
func (s *Service) resolveDirection(ctx context.Context, user *usermodels.User, explicit *attmodels.Direction) (attmodels.Direction, error) {
	if explicit != nil {
		return *explicit, nil
	}
	last, err := s.ledger.LastForUser(ctx, user.ID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attendance history")
	}
	if last == nil {
		return attmodels.DirectionOut, nil
	}
	return last.Type.Opposite(), nil
}

// decide runs the core branch logic. Caller holds the per-user critical
// section.
func (s *Service) decide(ctx context.Context, user *usermodels.User, direction attmodels.Direction, now time.Time) (*gate.ScreenResult, error) {
	active, err := s.permissions.ListActive(ctx, user.ID, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active permissions")
	}
	if len(active) > 1 {
		// Windows should never overlap; proceed with the most recent but
		// leave a trail for operators.
		s.metrics.ActiveAnomalies.Inc()
		s.logger.WarnContext(ctx, "multiple active permissions for user",
			"user_id", user.ID,
			"count", len(active),
		)
	}

	// A return scan against an expired window beats everything else: the
	// permission degrades to violation but the passage is still recorded.
	if direction == attmodels.DirectionIn {
		lastAccepted, err := s.permissions.FindLastAccepted(ctx, user.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find last accepted permission")
		}
		if lastAccepted != nil && lastAccepted.IsOverdueAt(now) {
			return s.recordLateReturn(ctx, user, lastAccepted, now)
		}
	}

	if len(active) > 0 {
		return s.recordAuthorized(ctx, user, active[0], direction, now)
	}
	return s.recordViolation(ctx, user, direction, now)
}

func (s *Service) recordAuthorized(ctx context.Context, user *usermodels.User, permission *permmodels.Permission, direction attmodels.Direction, now time.Time) (*gate.ScreenResult, error) {
	if err := s.appendLog(ctx, permission, user, direction, now); err != nil {
		return nil, err
	}
	return &gate.ScreenResult{
		Outcome:      gate.OutcomeAuthorized,
		Message:      fmt.Sprintf("Access granted. %s, %s!", direction, user.Name),
		Direction:    direction,
		User:         user,
		PermissionID: permission.ID,
	}, nil
}

func (s *Service) recordLateReturn(ctx context.Context, user *usermodels.User, overdue *permmodels.Permission, now time.Time) (*gate.ScreenResult, error) {
	violated, err := s.permissions.MarkViolation(ctx, overdue.ID, lateReturnReason)
	if err != nil {
		// The permission went terminal between lookup and update, which
		// only an overlapping administrative edit can cause.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark late return")
	}
	if err := s.appendLog(ctx, violated, user, attmodels.DirectionIn, now); err != nil {
		return nil, err
	}
	return &gate.ScreenResult{
		Outcome:      gate.OutcomeLate,
		Message:      fmt.Sprintf("Late return recorded. Welcome back, %s.", user.Name),
		Reason:       lateReturnReason,
		Direction:    attmodels.DirectionIn,
		User:         user,
		PermissionID: violated.ID,
	}, nil
}

func (s *Service) recordViolation(ctx context.Context, user *usermodels.User, direction attmodels.Direction, now time.Time) (*gate.ScreenResult, error) {
	reason := fmt.Sprintf("%s detected attempting %s without an approved permission", user.Name, direction)
	violation, err := s.permissions.InsertViolation(ctx, user.ID, reason, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record violation")
	}
	if err := s.appendLog(ctx, violation, user, direction, now); err != nil {
		return nil, err
	}
	return &gate.ScreenResult{
		Outcome:      gate.OutcomeViolation,
		Message:      fmt.Sprintf("Violation! %s is not permitted to pass %s.", user.Name, direction),
		Reason:       reason,
		Direction:    direction,
		User:         user,
		PermissionID: violation.ID,
	}, nil
}

func (s *Service) appendLog(ctx context.Context, permission *permmodels.Permission, user *usermodels.User, direction attmodels.Direction, now time.Time) error {
	entry, err := attmodels.NewLogEntry(permission.ID, user.ID, direction, now)
	if err != nil {
		return err
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append attendance log")
	}
	return nil
}

func (s *Service) publishDecision(ctx context.Context, result *gate.ScreenResult, now time.Time) {
	category := audit.CategoryOperations
	action := audit.EventGateAuthorized
	switch result.Outcome {
	case gate.OutcomeViolation:
		category = audit.CategorySecurity
		action = audit.EventGateViolation
	case gate.OutcomeLate:
		category = audit.CategorySecurity
		action = audit.EventGateLateReturn
	}
	s.publisher.Publish(audit.Event{
		Category:     category,
		Timestamp:    now,
		UserID:       result.User.ID,
		PermissionID: result.PermissionID,
		Action:       action,
		Decision:     string(result.Outcome),
		Reason:       result.Reason,
		RequestID:    requestcontext.RequestID(ctx),
		ClientIP:     requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
	})
}

func outcomeLabel(o gate.Outcome) string {
	switch o {
	case gate.OutcomeAuthorized:
		return "authorized"
	case gate.OutcomeLate:
		return "late"
	case gate.OutcomeViolation:
		return "violation"
	}
	return "unknown"
}
