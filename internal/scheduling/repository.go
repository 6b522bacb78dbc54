package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Repository provides persistence for appointments and the patient queue.
type Repository struct {
	q db.Querier
}

// NewRepository creates a repository backed by the pgx pool.
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("scheduling: pgx pool required")
	}
	return &Repository{q: q}
}

const appointmentColumns = `
	id, clinic_id, patient_id, doctor_id, appointment_date, appointment_time,
	appointment_datetime, appointment_type, reason_for_visit, status,
	checked_in_at, created_at
`

// Insert persists a new appointment in scheduled status.
func (r *Repository) Insert(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (
			id, clinic_id, patient_id, doctor_id, appointment_date, appointment_time,
			appointment_datetime, appointment_type, reason_for_visit, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		appt.ID,
		appt.ClinicID,
		appt.PatientID,
		appt.DoctorID,
		appt.Date,
		appt.Time,
		appt.Datetime,
		appt.Type,
		appt.Reason,
		appt.Status,
	).Scan(&appt.CreatedAt)
	if err != nil {
		return faults.FromStore("appointment", fmt.Errorf("scheduling: insert appointment: %w", err))
	}
	return nil
}

// GetByID fetches an appointment scoped to the clinic. A cross-clinic id is
// indistinguishable from a missing one.
func (r *Repository) GetByID(ctx context.Context, clinicID, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND clinic_id = $2`
	return scanAppointment(r.q.QueryRow(ctx, query, id, clinicID))
}

// List returns appointments for the clinic ordered by datetime ascending.
func (r *Repository) List(ctx context.Context, clinicID string, filter ListFilter) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE clinic_id = $1`
	args := []any{clinicID}

	if filter.Date != nil {
		query += fmt.Sprintf(` AND appointment_date = $%d`, len(args)+1)
		args = append(args, *filter.Date)
	}
	if filter.DoctorID != "" {
		query += fmt.Sprintf(` AND doctor_id = $%d`, len(args)+1)
		args = append(args, filter.DoctorID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, len(args)+1)
		args = append(args, filter.Status)
	}
	query += ` ORDER BY appointment_datetime ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, faults.FromStore("appointment", fmt.Errorf("scheduling: list appointments: %w", err))
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

// transitionToCheckedInTx flips a scheduled appointment to checked_in inside
// the caller's transaction. The status predicate in the WHERE clause makes
// the transition conditional; a second check-in attempt matches no row and
// is reported as a conflict, not silently re-applied.
func (r *Repository) transitionToCheckedInTx(ctx context.Context, tx pgx.Tx, clinicID, id string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3, checked_in_at = now(), updated_at = now()
		WHERE id = $1 AND clinic_id = $2 AND status = $4
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(tx.QueryRow(ctx, query, id, clinicID, StatusCheckedIn, StatusScheduled))
	if err == nil {
		return appt, nil
	}
	if faults.KindOf(err) != faults.KindNotFound {
		return nil, err
	}

	// Distinguish "absent" from "wrong status" for the caller.
	var status string
	lookupErr := tx.QueryRow(ctx,
		`SELECT status FROM appointments WHERE id = $1 AND clinic_id = $2`,
		id, clinicID,
	).Scan(&status)
	if lookupErr != nil {
		return nil, faults.FromStore("appointment", lookupErr)
	}
	return nil, faults.Conflict("appointment is " + status + ", expected scheduled")
}

// insertQueueEntryTx enrolls the appointment in the doctor's daily queue
// inside the caller's transaction. queue_date is stamped by the caller, not
// the database, so it always matches the day the position was allocated for.
func (r *Repository) insertQueueEntryTx(ctx context.Context, tx pgx.Tx, entry *QueueEntry) error {
	query := `
		INSERT INTO patient_queue (
			id, clinic_id, doctor_id, patient_id, appointment_id,
			queue_date, queue_position, check_in_time, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8)
		RETURNING check_in_time
	`
	err := tx.QueryRow(ctx, query,
		entry.ID,
		entry.ClinicID,
		entry.DoctorID,
		entry.PatientID,
		entry.AppointmentID,
		entry.QueueDate,
		entry.Position,
		entry.Status,
	).Scan(&entry.CheckInTime)
	if err != nil {
		return faults.FromStore("queue entry", fmt.Errorf("scheduling: insert queue entry: %w", err))
	}
	return nil
}

// QueueForDay returns the clinic's queue entries for the given calendar day,
// active consultations first, then the waiting line by position, completed
// last. The queue is read fresh from the store on every call; nothing is
// cached across requests.
func (r *Repository) QueueForDay(ctx context.Context, clinicID, doctorID string, day time.Time) ([]*QueueEntry, error) {
	query := `
		SELECT id, clinic_id, doctor_id, patient_id, appointment_id,
		       queue_date, queue_position, check_in_time, status
		FROM patient_queue
		WHERE clinic_id = $1 AND queue_date = $2
	`
	args := []any{clinicID, QueueDay(day)}
	if doctorID != "" {
		query += fmt.Sprintf(` AND doctor_id = $%d`, len(args)+1)
		args = append(args, doctorID)
	}
	query += `
		ORDER BY CASE status
			WHEN 'consulting' THEN 0
			WHEN 'waiting' THEN 1
			ELSE 2
		END, queue_position ASC
	`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, faults.FromStore("queue entry", fmt.Errorf("scheduling: read queue: %w", err))
	}
	defer rows.Close()

	var out []*QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(
			&e.ID,
			&e.ClinicID,
			&e.DoctorID,
			&e.PatientID,
			&e.AppointmentID,
			&e.QueueDate,
			&e.Position,
			&e.CheckInTime,
			&e.Status,
		); err != nil {
			return nil, faults.FromStore("queue entry", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var apptType, reason *string
	var checkedInAt *time.Time
	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Datetime,
		&apptType,
		&reason,
		&a.Status,
		&checkedInAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("appointment", err)
	}
	if apptType != nil {
		a.Type = *apptType
	}
	if reason != nil {
		a.Reason = *reason
	}
	a.CheckedInAt = checkedInAt
	return &a, nil
}
