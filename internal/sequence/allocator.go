package sequence

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Sequence names issued by the engine. Each is scoped to a clinic; the queue
// sequence is additionally scoped to a doctor and calendar day so positions
// reset every morning.
const (
	NameMRN          = "mrn"
	NameInvoice      = "invoice"
	NamePrescription = "prescription"
	NameQueue        = "queue"
)

// Allocator issues the next ordinal for a clinic-scoped named sequence.
// Values are strictly increasing per (clinicID, name, scopeKey) and never
// duplicated, regardless of how many workers allocate concurrently. Gaps are
// tolerated; a failed transaction may consume a number without using it.
type Allocator interface {
	Next(ctx context.Context, clinicID, name, scopeKey string) (int64, error)
}

// TxAllocator additionally issues numbers inside a caller-owned transaction
// when the backend supports it, so the number commits or rolls back together
// with the row that consumes it. Backends without transactional semantics
// allocate immediately; a rolled-back caller then leaves a gap, which the
// contract tolerates.
type TxAllocator interface {
	Allocator
	NextInTx(ctx context.Context, tx pgx.Tx, clinicID, name, scopeKey string) (int64, error)
}

// QueueScope builds the scope key that resets queue positions per doctor per
// calendar day.
func QueueScope(doctorID string, day time.Time) string {
	return doctorID + ":" + day.UTC().Format("2006-01-02")
}
