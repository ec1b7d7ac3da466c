package handler

import (
	attmodels "facegate/internal/attendance/models"
	"facegate/internal/gate"
	dErrors "facegate/pkg/domain-errors"
)

// screenRequest is the wire shape of a gate scan. Type is optional; when
// omitted the engine infers the direction from attendance history.
type screenRequest struct {
	Embedding []float64 `json:"embedding"`
	Type      string    `json:"type,omitempty"`
}

func (r screenRequest) Validate() error {
	if len(r.Embedding) == 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "embedding is required")
	}
	if r.Type != "" {
		if _, err := attmodels.ParseDirection(r.Type); err != nil {
			return dErrors.New(dErrors.CodeInvalidRequest, "type must be IN or OUT")
		}
	}
	return nil
}

func (r screenRequest) toDomain() gate.ScreenRequest {
	req := gate.ScreenRequest{Embedding: r.Embedding}
	if r.Type != "" {
		d := attmodels.Direction(r.Type)
		req.Type = &d
	}
	return req
}
