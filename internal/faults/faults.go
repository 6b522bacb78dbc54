package faults

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for callers and the HTTP layer.
type Kind int

const (
	// KindInternal covers uncategorized failures; the operation's effect is unknown.
	KindInternal Kind = iota
	// KindValidation marks malformed or missing input. Never retried.
	KindValidation
	// KindNotFound marks an absent entity. Clinic-scope mismatches report the
	// same kind so tenants cannot be enumerated.
	KindNotFound
	// KindConflict marks a state collision such as a duplicate check-in.
	KindConflict
	// KindTransient marks store timeouts and contention; the whole operation
	// is safe to retry from the top.
	KindTransient
)

// Fault is an error carrying a Kind.
type Fault struct {
	kind Kind
	msg  string
	err  error
}

func (f *Fault) Error() string {
	if f.err != nil {
		if f.msg != "" {
			return f.msg + ": " + f.err.Error()
		}
		return f.err.Error()
	}
	return f.msg
}

func (f *Fault) Unwrap() error { return f.err }

// Kind returns the classification of the fault.
func (f *Fault) Kind() Kind { return f.kind }

// New builds a fault with the given kind and message.
func New(kind Kind, msg string) error {
	return &Fault{kind: kind, msg: msg}
}

// Newf builds a fault with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Fault{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{kind: kind, msg: msg, err: err}
}

// Validation builds a validation fault.
func Validation(msg string) error { return New(KindValidation, msg) }

// NotFound builds a not-found fault for the named entity.
func NotFound(entity string) error { return Newf(KindNotFound, "%s not found", entity) }

// Conflict builds a conflict fault.
func Conflict(msg string) error { return New(KindConflict, msg) }

// Transient wraps a retryable store error.
func Transient(msg string, err error) error { return Wrap(KindTransient, msg, err) }

// KindOf extracts the classification from an error chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}
	return KindInternal
}

// Postgres error codes that matter to the engine.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// FromStore classifies a pgx error. Unique violations become conflicts
// (the schema backstops the engine's invariants), serialization failures,
// deadlocks, timeouts and connection loss become transient, and missing
// rows become not-found for the named entity.
func FromStore(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(entity)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(entity+": store timeout", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Wrap(KindConflict, entity+" already exists", err)
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return Transient(entity+": store contention", err)
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return Transient(entity+": store unavailable", err)
		}
	}
	return err
}
