// Package handler exposes the gate screening endpoint consumed by gate
// terminals.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"facegate/internal/gate"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/httputil"
	"facegate/pkg/requestcontext"
)

// Service screens gate scans.
type Service interface {
	Screen(ctx context.Context, req gate.ScreenRequest) (*gate.ScreenResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the gate routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/gate/screen", h.screen)
}

func (h *Handler) screen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode screen request",
			"request_id", requestID,
			"error", err,
		)
		writeScreenError(w, dErrors.New(dErrors.CodeInvalidRequest, "malformed request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeScreenError(w, err)
		return
	}

	result, err := h.service.Screen(ctx, req.toDomain())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "gate screening failed",
				"request_id", requestID,
				"error", err,
			)
		}
		writeScreenError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == gate.OutcomeViolation {
		status = http.StatusForbidden
	}
	httputil.WriteJSON(w, status, newScreenResponse(result))
}

// writeScreenError writes the terminal-facing error shape. Internal details
// never reach the terminal.
func writeScreenError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	if message == "" || code == dErrors.CodeInternal || code == dErrors.CodeInvariantViolation {
		message = "internal error"
	}
	httputil.WriteJSON(w, dErrors.HTTPStatus(code), screenErrorResponse{Message: message})
}
