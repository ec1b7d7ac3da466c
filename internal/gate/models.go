// Package gate holds the gate decision engine's domain types. The engine
// itself lives in the service subpackage; transport in handler.
package gate

import (
	attmodels "facegate/internal/attendance/models"
	usermodels "facegate/internal/user/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// Outcome tags the result of screening one gate scan. VIOLATION and LATE
// are deliberate, successfully-recorded decisions, not errors.
type Outcome string

const (
	OutcomeAuthorized Outcome = "AUTHORIZED"
	OutcomeViolation  Outcome = "VIOLATION"
	OutcomeLate       Outcome = "LATE"
)

// ScreenRequest is one validated gate scan. Type is nil when the engine
// should infer the direction of travel from the user's attendance history.
type ScreenRequest struct {
	Embedding []float64
	Type      *attmodels.Direction
}

// Validate enforces the boundary invariants.
func (r ScreenRequest) Validate() error {
	if len(r.Embedding) == 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "embedding is required")
	}
	if r.Type != nil && !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidRequest, "type must be IN or OUT")
	}
	return nil
}

// ScreenResult is the engine's decision for one scan.
type ScreenResult struct {
	Outcome      Outcome
	Message      string
	Reason       string
	Direction    attmodels.Direction
	User         *usermodels.User
	PermissionID id.PermissionID
}
