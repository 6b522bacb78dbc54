package sequence

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
)

// The counter row is incremented in a single statement; the row lock taken by
// ON CONFLICT DO UPDATE serializes concurrent allocators of the same key.
// Deriving "next" from count(*)+1 is exactly the race this table exists to
// close: two workers can observe the same count and both insert it.
const nextQuery = `
	INSERT INTO clinic_sequences (clinic_id, name, scope_key, value)
	VALUES ($1, $2, $3, 1)
	ON CONFLICT (clinic_id, name, scope_key)
	DO UPDATE SET value = clinic_sequences.value + 1, updated_at = now()
	RETURNING value
`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAllocator issues sequence values from the clinic_sequences counter
// table.
type PostgresAllocator struct {
	q db.Querier
}

// NewPostgresAllocator creates an allocator backed by the pgx pool.
func NewPostgresAllocator(q db.Querier) *PostgresAllocator {
	if q == nil {
		panic("sequence: pgx pool required")
	}
	return &PostgresAllocator{q: q}
}

// Next allocates the next value in its own implicit transaction.
func (a *PostgresAllocator) Next(ctx context.Context, clinicID, name, scopeKey string) (int64, error) {
	return next(ctx, a.q, clinicID, name, scopeKey)
}

// NextInTx allocates within the caller's transaction so the number commits or
// rolls back together with the row that consumes it.
func (a *PostgresAllocator) NextInTx(ctx context.Context, tx pgx.Tx, clinicID, name, scopeKey string) (int64, error) {
	return next(ctx, tx, clinicID, name, scopeKey)
}

// NextTx is NextInTx without an allocator instance; handy where only the
// transaction is in scope.
func NextTx(ctx context.Context, tx pgx.Tx, clinicID, name, scopeKey string) (int64, error) {
	return next(ctx, tx, clinicID, name, scopeKey)
}

func next(ctx context.Context, q rowQuerier, clinicID, name, scopeKey string) (int64, error) {
	var value int64
	if err := q.QueryRow(ctx, nextQuery, clinicID, name, scopeKey).Scan(&value); err != nil {
		return 0, faults.Transient("sequence: allocate "+name, err)
	}
	return value, nil
}
