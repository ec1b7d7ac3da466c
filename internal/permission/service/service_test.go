package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facegate/internal/permission/models"
	"facegate/internal/permission/service"
	permstore "facegate/internal/permission/store"
	usermodels "facegate/internal/user/models"
	userstore "facegate/internal/user/store"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/requestcontext"
)

type PermissionServiceSuite struct {
	suite.Suite

	users *userstore.MemoryStore
	perms *permstore.MemoryStore
	svc   *service.Service

	now  time.Time
	ctx  context.Context
	user *usermodels.User
}

func TestPermissionServiceSuite(t *testing.T) {
	suite.Run(t, new(PermissionServiceSuite))
}

func (s *PermissionServiceSuite) SetupTest() {
	s.users = userstore.NewMemory()
	s.perms = permstore.NewMemory()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(s.perms, s.users, service.WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	user, err := usermodels.NewUser("Alya", []float64{1, 0}, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, user))
	s.user = user
}

func (s *PermissionServiceSuite) fileRequest() *models.Permission {
	p, err := s.svc.RequestLeave(s.ctx, s.user.ID, "family visit",
		s.now.Add(time.Hour), s.now.Add(3*time.Hour))
	s.Require().NoError(err)
	return p
}

func (s *PermissionServiceSuite) TestRequestLeaveCreatesWaitingPermission() {
	p := s.fileRequest()

	s.Equal(models.StatusWaiting, p.Status)
	s.Equal(s.user.ID, p.UserID)
	s.Equal(s.now, p.CreatedAt)

	stored, err := s.perms.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(models.StatusWaiting, stored.Status)
}

func (s *PermissionServiceSuite) TestRequestLeaveUnknownUser() {
	_, err := s.svc.RequestLeave(s.ctx, id.NewUserID(), "family visit",
		s.now.Add(time.Hour), s.now.Add(3*time.Hour))

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PermissionServiceSuite) TestRequestLeaveRejectsInvertedWindow() {
	_, err := s.svc.RequestLeave(s.ctx, s.user.ID, "family visit",
		s.now.Add(3*time.Hour), s.now.Add(time.Hour))

	s.Require().Error(err)
}

func (s *PermissionServiceSuite) TestReviewAccepts() {
	p := s.fileRequest()

	updated, err := s.svc.Review(s.ctx, p.ID, models.StatusAccepted)

	s.Require().NoError(err)
	s.Equal(models.StatusAccepted, updated.Status)
}

func (s *PermissionServiceSuite) TestReviewDenies() {
	p := s.fileRequest()

	updated, err := s.svc.Review(s.ctx, p.ID, models.StatusDenied)

	s.Require().NoError(err)
	s.Equal(models.StatusDenied, updated.Status)
}

func (s *PermissionServiceSuite) TestReviewRejectsWaiting() {
	p := s.fileRequest()

	_, err := s.svc.Review(s.ctx, p.ID, models.StatusWaiting)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *PermissionServiceSuite) TestReviewTerminalPermissionConflicts() {
	p := s.fileRequest()
	_, err := s.svc.Review(s.ctx, p.ID, models.StatusDenied)
	s.Require().NoError(err)

	_, err = s.svc.Review(s.ctx, p.ID, models.StatusAccepted)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PermissionServiceSuite) TestReviewUnknownPermission() {
	_, err := s.svc.Review(s.ctx, id.NewPermissionID(), models.StatusAccepted)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PermissionServiceSuite) TestListFiltersByStatus() {
	first := s.fileRequest()
	second := s.fileRequest()
	_, err := s.svc.Review(s.ctx, first.ID, models.StatusAccepted)
	s.Require().NoError(err)

	waiting := models.StatusWaiting
	result, err := s.svc.List(s.ctx, &waiting)

	s.Require().NoError(err)
	s.Require().Len(result, 1)
	s.Equal(second.ID, result[0].ID)
}

func (s *PermissionServiceSuite) TestGetUnknownPermission() {
	_, err := s.svc.Get(s.ctx, id.NewPermissionID())

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
