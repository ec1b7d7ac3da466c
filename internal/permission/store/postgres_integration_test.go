//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facegate/internal/permission/models"
	"facegate/internal/permission/store"
	usermodels "facegate/internal/user/models"
	userstore "facegate/internal/user/store"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/testutil/containers"
)

type PostgresPermissionSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	users    *userstore.PostgresStore

	user *usermodels.User
	now  time.Time
}

func TestPostgresPermissionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresPermissionSuite))
}

func (s *PostgresPermissionSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.users = userstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresPermissionSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "attendance_logs", "permissions", "users"))

	s.now = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	user, err := usermodels.NewUser("Alya", []float64{1, 0, 0}, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(ctx, user))
	s.user = user
}

func (s *PostgresPermissionSuite) createAccepted(start, end, createdAt time.Time) *models.Permission {
	ctx := context.Background()
	p := &models.Permission{
		ID:        id.NewPermissionID(),
		UserID:    s.user.ID,
		Status:    models.StatusAccepted,
		Reason:    "family visit",
		StartTime: start,
		EndTime:   end,
		CreatedAt: createdAt,
	}
	s.Require().NoError(s.store.Create(ctx, p))
	return p
}

func (s *PostgresPermissionSuite) TestListActiveOrdersMostRecentFirst() {
	ctx := context.Background()
	older := s.createAccepted(s.now.Add(-2*time.Hour), s.now.Add(2*time.Hour), s.now.Add(-2*time.Hour))
	newer := s.createAccepted(s.now.Add(-time.Hour), s.now.Add(time.Hour), s.now.Add(-time.Hour))

	active, err := s.store.ListActive(ctx, s.user.ID, s.now)

	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(newer.ID, active[0].ID)
	s.Equal(older.ID, active[1].ID)
}

func (s *PostgresPermissionSuite) TestListActiveExcludesExpiredWindows() {
	ctx := context.Background()
	s.createAccepted(s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), s.now.Add(-3*time.Hour))

	active, err := s.store.ListActive(ctx, s.user.ID, s.now)

	s.Require().NoError(err)
	s.Empty(active)
}

func (s *PostgresPermissionSuite) TestMarkViolationDegradesAccepted() {
	ctx := context.Background()
	p := s.createAccepted(s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), s.now.Add(-3*time.Hour))

	updated, err := s.store.MarkViolation(ctx, p.ID, "late return")

	s.Require().NoError(err)
	s.Equal(models.StatusViolation, updated.Status)
	s.Equal("late return", updated.Reason)
}

func (s *PostgresPermissionSuite) TestMarkViolationOnTerminalConflicts() {
	ctx := context.Background()
	p := s.createAccepted(s.now.Add(-3*time.Hour), s.now.Add(-time.Hour), s.now.Add(-3*time.Hour))
	_, err := s.store.MarkViolation(ctx, p.ID, "late return")
	s.Require().NoError(err)

	_, err = s.store.MarkViolation(ctx, p.ID, "late return")

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PostgresPermissionSuite) TestMarkViolationUnknownPermission() {
	_, err := s.store.MarkViolation(context.Background(), id.NewPermissionID(), "late return")

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PostgresPermissionSuite) TestUpdateStatusEnforcesStateMachine() {
	ctx := context.Background()
	p := &models.Permission{
		ID:        id.NewPermissionID(),
		UserID:    s.user.ID,
		Status:    models.StatusWaiting,
		Reason:    "family visit",
		StartTime: s.now.Add(time.Hour),
		EndTime:   s.now.Add(3 * time.Hour),
		CreatedAt: s.now,
	}
	s.Require().NoError(s.store.Create(ctx, p))

	accepted, err := s.store.UpdateStatus(ctx, p.ID, models.StatusAccepted)
	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, accepted.Status)

	_, err = s.store.UpdateStatus(ctx, p.ID, models.StatusDenied)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PostgresPermissionSuite) TestInsertViolationCollapsesWindow() {
	ctx := context.Background()

	violation, err := s.store.InsertViolation(ctx, s.user.ID, "Alya detected attempting OUT without an approved permission", s.now)

	s.Require().NoError(err)
	stored, err := s.store.GetByID(ctx, violation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusViolation, stored.Status)
	s.True(stored.StartTime.Equal(stored.EndTime))
}
