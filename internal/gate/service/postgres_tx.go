package service

import (
	"context"
	"database/sql"

	id "facegate/pkg/domain"
	dErrors "facegate/pkg/domain-errors"
	"facegate/pkg/platform/tx"
)

// RowLocker takes row-level locks on a user's permission rows inside the
// current transaction.
type RowLocker interface {
	LockUserPermissions(ctx context.Context, userID id.UserID) error
}

// PostgresAtomic runs the critical section inside a single SQL transaction
// with the user's permission rows locked FOR UPDATE. Concurrent scans for
// the same user serialize at the database, so this also covers multi-node
// deployments where in-process locks would not.
//
// A user with no permission rows yet has nothing to lock; two concurrent
// first scans may then both insert a violation. Both are independently
// valid records, so this is tolerated rather than guarded.
type PostgresAtomic struct {
	db     *sql.DB
	locker RowLocker
}

func NewPostgresAtomic(db *sql.DB, locker RowLocker) *PostgresAtomic {
	return &PostgresAtomic{db: db, locker: locker}
}

func (a *PostgresAtomic) RunInUserTx(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	sqlTx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}

	txCtx := tx.WithTx(ctx, sqlTx)

	if err := a.locker.LockUserPermissions(txCtx, userID); err != nil {
		_ = sqlTx.Rollback()
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock user permissions")
	}

	if err := fn(txCtx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
