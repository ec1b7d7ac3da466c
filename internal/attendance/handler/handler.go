// Package handler exposes attendance history to administrators.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"facegate/internal/attendance/models"
	id "facegate/pkg/domain"
	"facegate/pkg/platform/httputil"
)

// Service is the attendance read contract.
type Service interface {
	History(ctx context.Context, userID id.UserID) ([]*models.LogEntry, error)
	Last(ctx context.Context, userID id.UserID) (*models.LogEntry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the attendance routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users/{userID}/attendance", h.history)
	r.Get("/users/{userID}/attendance/last", h.last)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.LogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]*models.LogEntry{"entries": entries})
}

func (h *Handler) last(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entry, err := h.service.Last(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]*models.LogEntry{"entry": entry})
}
