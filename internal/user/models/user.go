package models

import (
	"time"

	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
)

// User is an identity record resolved from a face embedding. Immutable from
// the gate engine's perspective.
type User struct {
	ID        id.UserID `json:"id"`
	Name      string    `json:"name"`
	Embedding []float64 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a User with domain invariant validation.
func NewUser(name string, embedding []float64, now time.Time) (*User, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	if len(embedding) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "embedding cannot be empty")
	}

	return &User{
		ID:        id.NewUserID(),
		Name:      name,
		Embedding: embedding,
		CreatedAt: now,
	}, nil
}
