package handler

import (
	"time"

	"facegate/internal/permission/models"
	dErrors "facegate/pkg/domain-errors"
)

type leaveRequest struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (r leaveRequest) Validate() error {
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "start_time and end_time are required")
	}
	if !r.EndTime.After(r.StartTime) {
		return dErrors.New(dErrors.CodeInvalidInput, "end_time must be after start_time")
	}
	return nil
}

type reviewRequest struct {
	Status string `json:"status"`
}

func (r reviewRequest) Validate() error {
	status, err := models.ParsePermissionStatus(r.Status)
	if err != nil {
		return err
	}
	if status == models.StatusWaiting {
		return dErrors.New(dErrors.CodeInvalidInput, "status must be accepted, denied, or violation")
	}
	return nil
}
