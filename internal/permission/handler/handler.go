// Package handler exposes the administrative permission API.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"facegate/internal/permission/models"
	id "facegate/pkg/domain"
	"facegate/pkg/platform/httputil"
	"facegate/pkg/requestcontext"
)

// Service is the permission workflow contract.
type Service interface {
	RequestLeave(ctx context.Context, userID id.UserID, reason string, start, end time.Time) (*models.Permission, error)
	Review(ctx context.Context, permissionID id.PermissionID, next models.PermissionStatus) (*models.Permission, error)
	Get(ctx context.Context, permissionID id.PermissionID) (*models.Permission, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Permission, error)
	List(ctx context.Context, status *models.PermissionStatus) ([]*models.Permission, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the permission routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/permissions", h.requestLeave)
	r.Get("/permissions", h.list)
	r.Get("/permissions/{permissionID}", h.get)
	r.Post("/permissions/{permissionID}/review", h.review)
	r.Get("/users/{userID}/permissions", h.listByUser)
}

func (h *Handler) requestLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[leaveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	permission, err := h.service.RequestLeave(ctx, userID, req.Reason, req.StartTime, req.EndTime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, permission)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	permissionID, err := id.ParsePermissionID(chi.URLParam(r, "permissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[reviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	status := models.PermissionStatus(req.Status)

	permission, err := h.service.Review(ctx, permissionID, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, permission)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	permissionID, err := id.ParsePermissionID(chi.URLParam(r, "permissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	permission, err := h.service.Get(r.Context(), permissionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, permission)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var status *models.PermissionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParsePermissionStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		status = &parsed
	}

	permissions, err := h.service.List(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(permissions))
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	permissions, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(permissions))
}

type listResponse struct {
	Permissions []*models.Permission `json:"permissions"`
}

func newListResponse(permissions []*models.Permission) listResponse {
	if permissions == nil {
		permissions = []*models.Permission{}
	}
	return listResponse{Permissions: permissions}
}
