package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "facegate/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL, append-only.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events
		 (id, category, occurred_at, user_id, permission_id, action, decision, reason, request_id, client_ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		uuid.UUID(event.UserID),
		uuid.UUID(event.PermissionID),
		string(event.Action),
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
