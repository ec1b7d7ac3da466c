package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"facegate/internal/permission/models"
	"facegate/internal/permission/service"
	permstore "facegate/internal/permission/store"
	usermodels "facegate/internal/user/models"
	userstore "facegate/internal/user/store"
)

type PermissionHandlerSuite struct {
	suite.Suite

	router chi.Router
	perms  *permstore.MemoryStore
	user   *usermodels.User
	now    time.Time
}

func TestPermissionHandlerSuite(t *testing.T) {
	suite.Run(t, new(PermissionHandlerSuite))
}

func (s *PermissionHandlerSuite) SetupTest() {
	users := userstore.NewMemory()
	s.perms = permstore.NewMemory()
	s.now = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	user, err := usermodels.NewUser("Alya", []float64{1, 0}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(context.Background(), user))
	s.user = user

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(s.perms, users, service.WithLogger(logger))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *PermissionHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *PermissionHandlerSuite) fileLeaveRequest() models.Permission {
	w := s.do(http.MethodPost, "/permissions", map[string]any{
		"user_id":    s.user.ID.String(),
		"reason":     "family visit",
		"start_time": s.now.Add(time.Hour),
		"end_time":   s.now.Add(3 * time.Hour),
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var created models.Permission
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	return created
}

func (s *PermissionHandlerSuite) TestRequestLeave() {
	created := s.fileLeaveRequest()

	s.Equal(models.StatusWaiting, created.Status)
	s.Equal(s.user.ID, created.UserID)
}

func (s *PermissionHandlerSuite) TestRequestLeaveMissingReason() {
	w := s.do(http.MethodPost, "/permissions", map[string]any{
		"user_id":    s.user.ID.String(),
		"start_time": s.now.Add(time.Hour),
		"end_time":   s.now.Add(3 * time.Hour),
	})

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *PermissionHandlerSuite) TestRequestLeaveInvertedWindow() {
	w := s.do(http.MethodPost, "/permissions", map[string]any{
		"user_id":    s.user.ID.String(),
		"reason":     "family visit",
		"start_time": s.now.Add(3 * time.Hour),
		"end_time":   s.now.Add(time.Hour),
	})

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *PermissionHandlerSuite) TestRequestLeaveUnknownUser() {
	w := s.do(http.MethodPost, "/permissions", map[string]any{
		"user_id":    "2c3d58f3-1f1f-4b3f-9a44-7a1f9d2a6b01",
		"reason":     "family visit",
		"start_time": s.now.Add(time.Hour),
		"end_time":   s.now.Add(3 * time.Hour),
	})

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *PermissionHandlerSuite) TestReviewAccept() {
	created := s.fileLeaveRequest()

	w := s.do(http.MethodPost, fmt.Sprintf("/permissions/%s/review", created.ID), map[string]any{
		"status": "accepted",
	})

	s.Require().Equal(http.StatusOK, w.Code)
	var reviewed models.Permission
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &reviewed))
	s.Equal(models.StatusAccepted, reviewed.Status)
}

func (s *PermissionHandlerSuite) TestReviewTerminalConflicts() {
	created := s.fileLeaveRequest()
	w := s.do(http.MethodPost, fmt.Sprintf("/permissions/%s/review", created.ID), map[string]any{
		"status": "denied",
	})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/permissions/%s/review", created.ID), map[string]any{
		"status": "accepted",
	})

	s.Equal(http.StatusConflict, w.Code)
}

func (s *PermissionHandlerSuite) TestReviewInvalidStatus() {
	created := s.fileLeaveRequest()

	w := s.do(http.MethodPost, fmt.Sprintf("/permissions/%s/review", created.ID), map[string]any{
		"status": "approved",
	})

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *PermissionHandlerSuite) TestReviewMalformedID() {
	w := s.do(http.MethodPost, "/permissions/not-a-uuid/review", map[string]any{
		"status": "accepted",
	})

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *PermissionHandlerSuite) TestListFiltersByStatus() {
	s.fileLeaveRequest()
	accepted := s.fileLeaveRequest()
	w := s.do(http.MethodPost, fmt.Sprintf("/permissions/%s/review", accepted.ID), map[string]any{
		"status": "accepted",
	})
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/permissions?status=accepted", nil)

	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Permissions []models.Permission `json:"permissions"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Permissions, 1)
	s.Equal(accepted.ID, resp.Permissions[0].ID)
}

func (s *PermissionHandlerSuite) TestListByUserEmpty() {
	w := s.do(http.MethodGet, fmt.Sprintf("/users/%s/permissions", s.user.ID), nil)

	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"permissions":[]}`, w.Body.String())
}

func (s *PermissionHandlerSuite) TestGetUnknownPermission() {
	w := s.do(http.MethodGet, "/permissions/3f0a6c2e-9d6e-4c57-9a2f-0a1b2c3d4e5f", nil)

	s.Equal(http.StatusNotFound, w.Code)
}
