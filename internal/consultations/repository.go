package consultations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/scheduling"
)

// Repository provides persistence for consultations and the queue/appointment
// transitions that bracket them.
type Repository struct {
	q db.Querier
}

// NewRepository creates a repository backed by the pgx pool.
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("consultations: pgx pool required")
	}
	return &Repository{q: q}
}

const consultationColumns = `
	c.id, c.appointment_id, c.started_at, c.chief_complaint,
	c.history_of_present_illness, c.past_medical_history, c.physical_examination,
	c.assessment, c.plan, c.vitals, c.doctor_notes, c.updated_at
`

// appointmentStatusTx reads the appointment's status under clinic scope.
func (r *Repository) appointmentStatusTx(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) (string, error) {
	var status string
	err := tx.QueryRow(ctx,
		`SELECT status FROM appointments WHERE id = $1 AND clinic_id = $2`,
		appointmentID, clinicID,
	).Scan(&status)
	if err != nil {
		return "", faults.FromStore("appointment", err)
	}
	return status, nil
}

// insertTx creates the consultation row. The unique index on appointment_id
// backstops the one-consultation-per-appointment invariant; a duplicate
// insert surfaces as a conflict.
func (r *Repository) insertTx(ctx context.Context, tx pgx.Tx, c *Consultation) error {
	query := `
		INSERT INTO consultations (id, appointment_id, started_at)
		VALUES ($1, $2, now())
		RETURNING started_at, updated_at
	`
	if err := tx.QueryRow(ctx, query, c.ID, c.AppointmentID).Scan(&c.StartedAt, &c.UpdatedAt); err != nil {
		return faults.FromStore("consultation", fmt.Errorf("consultations: insert: %w", err))
	}
	return nil
}

// markQueueConsultingTx promotes the waiting queue entry for the appointment.
func (r *Repository) markQueueConsultingTx(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) error {
	ct, err := tx.Exec(ctx,
		`UPDATE patient_queue SET status = $3 WHERE appointment_id = $1 AND clinic_id = $2 AND status = $4`,
		appointmentID, clinicID, scheduling.QueueConsulting, scheduling.QueueWaiting,
	)
	if err != nil {
		return faults.FromStore("queue entry", fmt.Errorf("consultations: promote queue entry: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return faults.Conflict("patient is not waiting in the queue")
	}
	return nil
}

// GetScoped fetches a consultation, verifying clinic scope through its
// appointment. A consultation in another clinic reads as not found.
func (r *Repository) GetScoped(ctx context.Context, clinicID, consultationID string) (*Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations c
		JOIN appointments a ON a.id = c.appointment_id
		WHERE c.id = $1 AND a.clinic_id = $2
	`
	return scanConsultation(r.q.QueryRow(ctx, query, consultationID, clinicID))
}

// getScopedForUpdateTx reads the consultation under a row lock so a
// concurrent partial update cannot merge against the same snapshot and drop
// this one's fields.
func (r *Repository) getScopedForUpdateTx(ctx context.Context, tx pgx.Tx, clinicID, consultationID string) (*Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations c
		JOIN appointments a ON a.id = c.appointment_id
		WHERE c.id = $1 AND a.clinic_id = $2
		FOR UPDATE OF c
	`
	return scanConsultation(tx.QueryRow(ctx, query, consultationID, clinicID))
}

// updateFieldsTx writes the merged consultation back. The caller performed
// the merge under the row lock; this statement overwrites every mutable
// field.
func (r *Repository) updateFieldsTx(ctx context.Context, tx pgx.Tx, c *Consultation) error {
	query := `
		UPDATE consultations
		SET chief_complaint = $2,
		    history_of_present_illness = $3,
		    past_medical_history = $4,
		    physical_examination = $5,
		    assessment = $6,
		    plan = $7,
		    vitals = $8,
		    doctor_notes = $9,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		c.ID,
		c.ChiefComplaint,
		c.HistoryOfPresentIllness,
		c.PastMedicalHistory,
		c.PhysicalExamination,
		c.Assessment,
		c.Plan,
		c.Vitals,
		c.DoctorNotes,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return faults.FromStore("consultation", fmt.Errorf("consultations: update: %w", err))
	}
	return nil
}

// completeAppointmentTx moves a checked-in appointment to completed.
func (r *Repository) completeAppointmentTx(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) error {
	ct, err := tx.Exec(ctx,
		`UPDATE appointments SET status = $3, updated_at = now() WHERE id = $1 AND clinic_id = $2 AND status = $4`,
		appointmentID, clinicID, scheduling.StatusCompleted, scheduling.StatusCheckedIn,
	)
	if err != nil {
		return faults.FromStore("appointment", fmt.Errorf("consultations: complete appointment: %w", err))
	}
	if ct.RowsAffected() == 0 {
		var status string
		lookupErr := tx.QueryRow(ctx,
			`SELECT status FROM appointments WHERE id = $1 AND clinic_id = $2`,
			appointmentID, clinicID,
		).Scan(&status)
		if lookupErr != nil {
			return faults.FromStore("appointment", lookupErr)
		}
		return faults.Conflict("appointment is " + status + ", expected checked_in")
	}
	return nil
}

// completeQueueEntryTx closes the appointment's queue entry.
func (r *Repository) completeQueueEntryTx(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string) error {
	ct, err := tx.Exec(ctx,
		`UPDATE patient_queue SET status = $3 WHERE appointment_id = $1 AND clinic_id = $2 AND status <> $3`,
		appointmentID, clinicID, scheduling.QueueCompleted,
	)
	if err != nil {
		return faults.FromStore("queue entry", fmt.Errorf("consultations: complete queue entry: %w", err))
	}
	if ct.RowsAffected() == 0 {
		return faults.Conflict("no active queue entry for appointment")
	}
	return nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var chief, hpi, pmh, exam, assessment, plan, vitals, notes *string
	err := row.Scan(
		&c.ID,
		&c.AppointmentID,
		&c.StartedAt,
		&chief,
		&hpi,
		&pmh,
		&exam,
		&assessment,
		&plan,
		&vitals,
		&notes,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("consultation", err)
	}
	c.ChiefComplaint = deref(chief)
	c.HistoryOfPresentIllness = deref(hpi)
	c.PastMedicalHistory = deref(pmh)
	c.PhysicalExamination = deref(exam)
	c.Assessment = deref(assessment)
	c.Plan = deref(plan)
	c.Vitals = deref(vitals)
	c.DoctorNotes = deref(notes)
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
