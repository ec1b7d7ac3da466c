package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"facegate/internal/attendance/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/tx"
)

// PostgresStore persists attendance log entries in PostgreSQL. Like the
// permission store it honors a context transaction so the gate's append
// commits atomically with the permission write.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attendance ledger.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

const logColumns = "id, permission_id, user_id, type, created_at"

func (s *PostgresStore) Append(ctx context.Context, entry *models.LogEntry) error {
	if entry == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "log entry is required")
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO attendance_logs (`+logColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(entry.ID), uuid.UUID(entry.PermissionID), uuid.UUID(entry.UserID), string(entry.Type), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append attendance log: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastForUser(ctx context.Context, userID id.UserID) (*models.LogEntry, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		uuid.UUID(userID),
	)
	entry, err := scanLogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last attendance log for user: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.LogEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+logColumns+` FROM attendance_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list attendance logs by user: %w", err)
	}
	defer rows.Close()

	var result []*models.LogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance logs: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) CountForUser(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_logs WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance logs: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLogEntry(row rowScanner) (*models.LogEntry, error) {
	var (
		logID        uuid.UUID
		permissionID uuid.UUID
		userID       uuid.UUID
		direction    string
		entry        models.LogEntry
	)
	err := row.Scan(&logID, &permissionID, &userID, &direction, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.ID = id.AttendanceLogID(logID)
	entry.PermissionID = id.PermissionID(permissionID)
	entry.UserID = id.UserID(userID)
	entry.Type = models.Direction(direction)
	return &entry, nil
}
