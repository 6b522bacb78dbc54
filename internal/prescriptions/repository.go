package prescriptions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Repository persists prescription headers and their medicine lines.
type Repository struct {
	q db.Querier
}

// NewRepository creates a repository backed by the pgx pool.
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("prescriptions: pgx pool required")
	}
	return &Repository{q: q}
}

// insertTx writes the header and every medicine line inside the caller's
// transaction. The unique index on consultation_id rejects a second
// prescription for the same consultation, which surfaces as a conflict.
func (r *Repository) insertTx(ctx context.Context, tx pgx.Tx, p *Prescription) error {
	query := `
		INSERT INTO prescriptions (
			id, clinic_id, consultation_id, patient_id, doctor_id,
			prescription_number, prescription_date, instructions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		p.ID,
		p.ClinicID,
		p.ConsultationID,
		p.PatientID,
		p.DoctorID,
		p.Number,
		p.Date,
		p.Instructions,
	).Scan(&p.CreatedAt)
	if err != nil {
		return faults.FromStore("prescription", fmt.Errorf("prescriptions: insert: %w", err))
	}

	for i := range p.Medicines {
		m := &p.Medicines[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO prescription_medicines (
				id, prescription_id, line_no, drug_name, strength, form,
				frequency, duration_days, special_instructions
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, m.ID, p.ID, i+1, m.DrugName, m.Strength, m.Form, m.Frequency, m.DurationDays, m.Instructions)
		if err != nil {
			return faults.FromStore("prescription medicine", fmt.Errorf("prescriptions: insert medicine: %w", err))
		}
	}
	return nil
}

const prescriptionColumns = `
	id, clinic_id, consultation_id, patient_id, doctor_id,
	prescription_number, prescription_date, instructions, created_at
`

// GetByConsultation fetches the prescription issued for a consultation,
// medicines included, scoped to the clinic.
func (r *Repository) GetByConsultation(ctx context.Context, clinicID, consultationID string) (*Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE consultation_id = $1 AND clinic_id = $2`
	p, err := scanPrescription(r.q.QueryRow(ctx, query, consultationID, clinicID))
	if err != nil {
		return nil, err
	}
	if err := r.loadMedicines(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID fetches a prescription by id, medicines included, scoped to the
// clinic.
func (r *Repository) GetByID(ctx context.Context, clinicID, id string) (*Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1 AND clinic_id = $2`
	p, err := scanPrescription(r.q.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		return nil, err
	}
	if err := r.loadMedicines(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) loadMedicines(ctx context.Context, p *Prescription) error {
	rows, err := r.q.Query(ctx, `
		SELECT id, drug_name, strength, form, frequency, duration_days, special_instructions
		FROM prescription_medicines
		WHERE prescription_id = $1
		ORDER BY line_no ASC
	`, p.ID)
	if err != nil {
		return faults.FromStore("prescription medicine", fmt.Errorf("prescriptions: load medicines: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var m Medicine
		var strength, form, frequency, instructions *string
		var duration *int
		if err := rows.Scan(&m.ID, &m.DrugName, &strength, &form, &frequency, &duration, &instructions); err != nil {
			return faults.FromStore("prescription medicine", err)
		}
		m.Strength = deref(strength)
		m.Form = deref(form)
		m.Frequency = deref(frequency)
		m.Instructions = deref(instructions)
		if duration != nil {
			m.DurationDays = *duration
		}
		p.Medicines = append(p.Medicines, m)
	}
	return rows.Err()
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var instructions *string
	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.ConsultationID,
		&p.PatientID,
		&p.DoctorID,
		&p.Number,
		&p.Date,
		&instructions,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("prescription", err)
	}
	p.Instructions = deref(instructions)
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
