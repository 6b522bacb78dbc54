package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Querier is the subset of *pgxpool.Pool the repositories depend on.
// pgxmock satisfies it, which keeps repository tests off a live database.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx runs fn inside a transaction borrowed for the duration of one
// logical operation. The transaction is committed only if fn returns nil;
// every other exit path, including panics and timeouts, rolls back. A
// positive timeout bounds the whole unit so a stuck transaction cannot hold
// locks indefinitely.
func WithTx(ctx context.Context, q Querier, timeout time.Duration, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := q.Begin(ctx)
	if err != nil {
		return faults.Transient("db: begin transaction", err)
	}
	// Rollback must survive a cancelled operation context.
	rollbackCtx := context.WithoutCancel(ctx)
	defer func() { _ = tx.Rollback(rollbackCtx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return faults.Transient("db: commit transaction", err)
	}
	return nil
}
