package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	attmodels "facegate/internal/attendance/models"
	attstore "facegate/internal/attendance/store"
	"facegate/internal/gate"
	"facegate/internal/gate/service"
	"facegate/internal/identity"
	permmodels "facegate/internal/permission/models"
	permstore "facegate/internal/permission/store"
	usermodels "facegate/internal/user/models"
	userstore "facegate/internal/user/store"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/audit"
	"facegate/pkg/requestcontext"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *capturePublisher) Publish(event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) Events() []audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]audit.Event(nil), p.events...)
}

type GateServiceSuite struct {
	suite.Suite

	users     *userstore.MemoryStore
	perms     *permstore.MemoryStore
	ledger    *attstore.MemoryStore
	publisher *capturePublisher
	svc       *service.Service

	now time.Time
	ctx context.Context
}

func TestGateServiceSuite(t *testing.T) {
	suite.Run(t, new(GateServiceSuite))
}

func (s *GateServiceSuite) SetupTest() {
	s.users = userstore.NewMemory()
	s.perms = permstore.NewMemory()
	s.ledger = attstore.NewMemory()
	s.publisher = &capturePublisher{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := identity.NewResolver(s.users, 0.92, logger)

	svc, err := service.New(resolver, s.perms, s.ledger, service.NewShardedAtomic(),
		service.WithLogger(logger),
		service.WithAuditPublisher(s.publisher),
	)
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *GateServiceSuite) registerUser(name string, embedding []float64) *usermodels.User {
	user, err := usermodels.NewUser(name, embedding, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *GateServiceSuite) addPermission(userID id.UserID, status permmodels.PermissionStatus, start, end, createdAt time.Time) *permmodels.Permission {
	p := &permmodels.Permission{
		ID:        id.NewPermissionID(),
		UserID:    userID,
		Status:    status,
		Reason:    "family visit",
		StartTime: start,
		EndTime:   end,
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.perms.Create(s.ctx, p))
	return p
}

func (s *GateServiceSuite) screen(embedding []float64, direction *attmodels.Direction) (*gate.ScreenResult, error) {
	return s.svc.Screen(s.ctx, gate.ScreenRequest{Embedding: embedding, Type: direction})
}

func (s *GateServiceSuite) logCount(userID id.UserID) int {
	count, err := s.ledger.CountForUser(s.ctx, userID)
	s.Require().NoError(err)
	return count
}

func directionPtr(d attmodels.Direction) *attmodels.Direction {
	return &d
}

func (s *GateServiceSuite) TestEmptyEmbeddingRejectedWithoutWrites() {
	user := s.registerUser("Alya", []float64{1, 0, 0})

	result, err := s.screen(nil, nil)

	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidRequest))
	s.Equal(0, s.logCount(user.ID))
}

func (s *GateServiceSuite) TestUnknownFaceRejectedWithoutWrites() {
	user := s.registerUser("Alya", []float64{1, 0, 0})

	result, err := s.screen([]float64{0, 1, 0}, nil)

	s.Require().Error(err)
	s.Nil(result)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(0, s.logCount(user.ID))

	all, err := s.perms.List(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *GateServiceSuite) TestActivePermissionAuthorizes() {
	user := s.registerUser("Alya", []float64{1, 0, 0})
	active := s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	result, err := s.screen(user.Embedding, nil)

	s.Require().NoError(err)
	s.Equal(gate.OutcomeAuthorized, result.Outcome)
	s.Equal(attmodels.DirectionOut, result.Direction)
	s.Equal(active.ID, result.PermissionID)
	s.Contains(result.Message, "Alya")

	s.Equal(1, s.logCount(user.ID))
	last, err := s.ledger.LastForUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(active.ID, last.PermissionID)
	s.Equal(attmodels.DirectionOut, last.Type)
	s.Equal(s.now, last.CreatedAt)
}

func (s *GateServiceSuite) TestDirectionInferenceAlternates() {
	user := s.registerUser("Alya", []float64{1, 0, 0})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	first, err := s.screen(user.Embedding, nil)
	s.Require().NoError(err)
	s.Equal(attmodels.DirectionOut, first.Direction)

	second, err := s.screen(user.Embedding, nil)
	s.Require().NoError(err)
	s.Equal(attmodels.DirectionIn, second.Direction)

	third, err := s.screen(user.Embedding, nil)
	s.Require().NoError(err)
	s.Equal(attmodels.DirectionOut, third.Direction)
}

func (s *GateServiceSuite) TestExplicitDirectionOverridesInference() {
	user := s.registerUser("Alya", []float64{1, 0, 0})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionIn))

	s.Require().NoError(err)
	s.Equal(attmodels.DirectionIn, result.Direction)
}

func (s *GateServiceSuite) TestNoPermissionRecordsViolation() {
	user := s.registerUser("Budi", []float64{0, 1, 0})

	result, err := s.screen(user.Embedding, nil)

	s.Require().NoError(err)
	s.Equal(gate.OutcomeViolation, result.Outcome)
	s.Contains(result.Reason, "Budi")
	s.Contains(result.Reason, "OUT")

	stored, err := s.perms.GetByID(s.ctx, result.PermissionID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(permmodels.StatusViolation, stored.Status)
	s.Equal(s.now, stored.StartTime)
	s.Equal(s.now, stored.EndTime)

	s.Equal(1, s.logCount(user.ID))
	last, err := s.ledger.LastForUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(stored.ID, last.PermissionID)
}

func (s *GateServiceSuite) TestWaitingPermissionDoesNotAuthorize() {
	user := s.registerUser("Budi", []float64{0, 1, 0})
	s.addPermission(user.ID, permmodels.StatusWaiting,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	result, err := s.screen(user.Embedding, nil)

	s.Require().NoError(err)
	s.Equal(gate.OutcomeViolation, result.Outcome)
}

func (s *GateServiceSuite) TestLateReturnMarksPermissionViolated() {
	user := s.registerUser("Citra", []float64{0, 0, 1})
	overdue := s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), s.now.Add(-3*time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionIn))

	s.Require().NoError(err)
	s.Equal(gate.OutcomeLate, result.Outcome)
	s.Equal("late return", result.Reason)
	s.Equal(overdue.ID, result.PermissionID)

	stored, err := s.perms.GetByID(s.ctx, overdue.ID)
	s.Require().NoError(err)
	s.Equal(permmodels.StatusViolation, stored.Status)
	s.Equal("late return", stored.Reason)

	s.Equal(1, s.logCount(user.ID))
	last, err := s.ledger.LastForUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(overdue.ID, last.PermissionID)
	s.Equal(attmodels.DirectionIn, last.Type)
}

func (s *GateServiceSuite) TestLateReturnWinsOverActivePermission() {
	// An older long-running permission still covers now, but the most
	// recently accepted one has already expired. The expired one governs
	// the return.
	user := s.registerUser("Citra", []float64{0, 0, 1})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-48*time.Hour), s.now.Add(48*time.Hour), s.now.Add(-48*time.Hour))
	overdue := s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), s.now.Add(-3*time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionIn))

	s.Require().NoError(err)
	s.Equal(gate.OutcomeLate, result.Outcome)
	s.Equal(overdue.ID, result.PermissionID)
}

func (s *GateServiceSuite) TestReturnAtExactEndTimeIsOnTime() {
	user := s.registerUser("Citra", []float64{0, 0, 1})
	active := s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-2*time.Hour), s.now, s.now.Add(-2*time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionIn))

	s.Require().NoError(err)
	s.Equal(gate.OutcomeAuthorized, result.Outcome)
	s.Equal(active.ID, result.PermissionID)
}

func (s *GateServiceSuite) TestReturnJustAfterEndTimeIsLate() {
	user := s.registerUser("Citra", []float64{0, 0, 1})
	overdue := s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-2*time.Hour), s.now.Add(-time.Nanosecond), s.now.Add(-2*time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionIn))

	s.Require().NoError(err)
	s.Equal(gate.OutcomeLate, result.Outcome)
	s.Equal(overdue.ID, result.PermissionID)
}

func (s *GateServiceSuite) TestOutScanIgnoresOverdueHistory() {
	user := s.registerUser("Citra", []float64{0, 0, 1})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), s.now.Add(-3*time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionOut))

	s.Require().NoError(err)
	s.Equal(gate.OutcomeViolation, result.Outcome)
}

func (s *GateServiceSuite) TestMultipleActivePermissionsPicksMostRecent() {
	user := s.registerUser("Dewi", []float64{1, 1, 0})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-2*time.Hour), s.now.Add(2*time.Hour), s.now.Add(-2*time.Hour))
	recent := s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	result, err := s.screen(user.Embedding, directionPtr(attmodels.DirectionOut))

	s.Require().NoError(err)
	s.Equal(gate.OutcomeAuthorized, result.Outcome)
	s.Equal(recent.ID, result.PermissionID)
}

func (s *GateServiceSuite) TestEverySuccessfulScanAppendsExactlyOneEntry() {
	user := s.registerUser("Dewi", []float64{1, 1, 0})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	for i := 0; i < 5; i++ {
		_, err := s.screen(user.Embedding, nil)
		s.Require().NoError(err)
	}
	s.Equal(5, s.logCount(user.ID))
}

func (s *GateServiceSuite) TestConcurrentScansSerializePerUser() {
	user := s.registerUser("Eko", []float64{1, 0, 1})
	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	var wg sync.WaitGroup
	results := make([]*gate.ScreenResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.screen(user.Embedding, nil)
		}(i)
	}
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	s.Equal(2, s.logCount(user.ID))

	// Inference runs inside the critical section, so the two scans must
	// have seen each other and recorded opposite directions.
	s.NotEqual(results[0].Direction, results[1].Direction)
}

func (s *GateServiceSuite) TestConcurrentUnpermittedScansRecordIndependentViolations() {
	user := s.registerUser("Eko", []float64{1, 0, 1})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.screen(user.Embedding, nil)
		}(i)
	}
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])
	s.Equal(2, s.logCount(user.ID))

	violations, err := s.perms.ListByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(violations, 2)
	for _, v := range violations {
		s.Equal(permmodels.StatusViolation, v.Status)
	}
}

func (s *GateServiceSuite) TestAuditEventsPublishedPerOutcome() {
	user := s.registerUser("Fajar", []float64{0, 1, 1})

	_, err := s.screen(user.Embedding, nil)
	s.Require().NoError(err)

	s.addPermission(user.ID, permmodels.StatusAccepted,
		s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))
	_, err = s.screen(user.Embedding, directionPtr(attmodels.DirectionOut))
	s.Require().NoError(err)

	events := s.publisher.Events()
	s.Require().Len(events, 2)

	s.Equal(audit.EventGateViolation, events[0].Action)
	s.Equal(audit.CategorySecurity, events[0].Category)
	s.Equal(user.ID, events[0].UserID)

	s.Equal(audit.EventGateAuthorized, events[1].Action)
	s.Equal(audit.CategoryOperations, events[1].Category)
}
