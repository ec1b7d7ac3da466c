package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facegate/internal/permission/models"
	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/tx"
)

// PostgresStore persists permissions in PostgreSQL. Methods honor a
// transaction placed in the context by the gate's atomic runner so the
// conditional permission write and the attendance insert share one
// transaction boundary.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed permission store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
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

const permissionColumns = "id, user_id, status, reason, start_time, end_time, created_at"

func (s *PostgresStore) Create(ctx context.Context, p *models.Permission) error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "permission is required")
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO permissions (`+permissionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(p.ID), uuid.UUID(p.UserID), string(p.Status), p.Reason, p.StartTime, p.EndTime, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, permissionID id.PermissionID) (*models.Permission, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = $1`,
		uuid.UUID(permissionID),
	)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, userID id.UserID, now time.Time) ([]*models.Permission, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions
		 WHERE user_id = $1 AND status = $2 AND start_time <= $3 AND end_time >= $3
		 ORDER BY created_at DESC, id DESC`,
		uuid.UUID(userID), string(models.StatusAccepted), now,
	)
	if err != nil {
		return nil, fmt.Errorf("list active permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *PostgresStore) FindLastAccepted(ctx context.Context, userID id.UserID) (*models.Permission, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions
		 WHERE user_id = $1 AND status = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		uuid.UUID(userID), string(models.StatusAccepted),
	)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find last accepted permission: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) InsertViolation(ctx context.Context, userID id.UserID, reason string, now time.Time) (*models.Permission, error) {
	violation, err := models.NewViolation(userID, reason, now)
	if err != nil {
		return nil, err
	}
	if err := s.Create(ctx, violation); err != nil {
		return nil, err
	}
	return violation, nil
}

// MarkViolation applies the conditional update enforcing the state machine:
// only non-terminal statuses may degrade to violation. A zero-row update is
// disambiguated into not-found versus conflict.
func (s *PostgresStore) MarkViolation(ctx context.Context, permissionID id.PermissionID, reason string) (*models.Permission, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`UPDATE permissions SET status = $2, reason = $3
		 WHERE id = $1 AND status IN ($4, $5)
		 RETURNING `+permissionColumns,
		uuid.UUID(permissionID), string(models.StatusViolation), reason,
		string(models.StatusWaiting), string(models.StatusAccepted),
	)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetByID(ctx, permissionID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "permission %s not found", permissionID)
		}
		return nil, dErrors.Newf(dErrors.CodeConflict, "permission %s cannot transition from %s to violation", permissionID, existing.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("mark permission violation: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, permissionID id.PermissionID, next models.PermissionStatus) (*models.Permission, error) {
	if !next.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid permission status %q", next)
	}

	var from []string
	for _, status := range []models.PermissionStatus{models.StatusWaiting, models.StatusAccepted} {
		if status.CanTransitionTo(next) {
			from = append(from, string(status))
		}
	}
	if len(from) == 0 {
		return nil, dErrors.Newf(dErrors.CodeConflict, "no status may transition to %s", next)
	}

	row := s.q(ctx).QueryRowContext(ctx,
		`UPDATE permissions SET status = $2
		 WHERE id = $1 AND status = ANY($3)
		 RETURNING `+permissionColumns,
		uuid.UUID(permissionID), string(next), pq.Array(from),
	)
	p, err := scanPermission(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := s.GetByID(ctx, permissionID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "permission %s not found", permissionID)
		}
		return nil, dErrors.Newf(dErrors.CodeConflict, "permission %s cannot transition from %s to %s", permissionID, existing.Status, next)
	}
	if err != nil {
		return nil, fmt.Errorf("update permission status: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Permission, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+permissionColumns+` FROM permissions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list permissions by user: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *PostgresStore) List(ctx context.Context, status *models.PermissionStatus) ([]*models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// LockUserPermissions takes row locks on all of a user's permission rows for
// the duration of the surrounding transaction. The gate's critical section
// uses this to serialize same-user scans.
func (s *PostgresStore) LockUserPermissions(ctx context.Context, userID id.UserID) error {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id FROM permissions WHERE user_id = $1 FOR UPDATE`,
		uuid.UUID(userID),
	)
	if err != nil {
		return fmt.Errorf("lock user permissions: %w", err)
	}
	return rows.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (*models.Permission, error) {
	var (
		permissionID uuid.UUID
		userID       uuid.UUID
		status       string
		p            models.Permission
	)
	err := row.Scan(&permissionID, &userID, &status, &p.Reason, &p.StartTime, &p.EndTime, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = id.PermissionID(permissionID)
	p.UserID = id.UserID(userID)
	p.Status = models.PermissionStatus(status)
	return &p, nil
}

func scanPermissions(rows *sql.Rows) ([]*models.Permission, error) {
	var result []*models.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return result, nil
}
