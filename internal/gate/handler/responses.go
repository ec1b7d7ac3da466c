package handler

import (
	"facegate/internal/gate"
)

// screenResponse is returned for every screened scan, including violations.
// Gate terminals key off status; message is display text.
type screenResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

func newScreenResponse(result *gate.ScreenResult) screenResponse {
	return screenResponse{
		Message: result.Message,
		Status:  string(result.Outcome),
		Reason:  result.Reason,
	}
}

// screenErrorResponse is the error shape gate terminals expect. Kept
// separate from the admin API's error envelope.
type screenErrorResponse struct {
	Message string `json:"message"`
}
