package patients

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/sequence"
)

// Repository stores patients in the relational database. MRN issuance happens
// inside the same transaction as the insert so a failed registration never
// burns a visible record number.
type Repository struct {
	q         db.Querier
	alloc     sequence.TxAllocator
	txTimeout time.Duration
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(q db.Querier, alloc sequence.TxAllocator, txTimeout time.Duration) *Repository {
	if q == nil {
		panic("patients: pgx pool required")
	}
	if alloc == nil {
		panic("patients: sequence allocator required")
	}
	return &Repository{q: q, alloc: alloc, txTimeout: txTimeout}
}

// FormatMRN renders an allocated ordinal as a display MRN.
func FormatMRN(seq int64) string {
	return fmt.Sprintf("MRN-%06d", seq)
}

// Register inserts a new patient with a freshly issued MRN.
func (r *Repository) Register(ctx context.Context, req *RegisterPatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	patient := &Patient{
		ID:                    uuid.NewString(),
		ClinicID:              req.ClinicID,
		FullName:              req.FullName,
		DateOfBirth:           req.DateOfBirth,
		Gender:                req.Gender,
		BloodGroup:            req.BloodGroup,
		Phone:                 req.Phone,
		Email:                 req.Email,
		Address:               req.Address,
		City:                  req.City,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
	}

	err := db.WithTx(ctx, r.q, r.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := r.alloc.NextInTx(ctx, tx, req.ClinicID, sequence.NameMRN, "")
		if err != nil {
			return err
		}
		patient.MRN = FormatMRN(seq)

		query := `
			INSERT INTO patients (
				id, clinic_id, patient_mrn, full_name, date_of_birth, gender, blood_group,
				phone, email, address, city, emergency_contact_name, emergency_contact_phone
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING created_at
		`
		if err := tx.QueryRow(ctx, query,
			patient.ID,
			patient.ClinicID,
			patient.MRN,
			patient.FullName,
			patient.DateOfBirth,
			patient.Gender,
			patient.BloodGroup,
			patient.Phone,
			patient.Email,
			patient.Address,
			patient.City,
			patient.EmergencyContactName,
			patient.EmergencyContactPhone,
		).Scan(&patient.CreatedAt); err != nil {
			return faults.FromStore("patient", fmt.Errorf("patients: insert: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

const patientColumns = `
	id, clinic_id, patient_mrn, full_name, date_of_birth, gender, blood_group,
	phone, email, address, city, emergency_contact_name, emergency_contact_phone, created_at
`

// GetByID fetches a patient scoped to the clinic. A patient belonging to a
// different clinic is indistinguishable from a missing one.
func (r *Repository) GetByID(ctx context.Context, clinicID, id string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND clinic_id = $2`
	patient, err := scanPatient(r.q.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// List returns active patients for the clinic, optionally filtered by a
// search term over name, phone and MRN.
func (r *Repository) List(ctx context.Context, clinicID string, filter ListFilter) ([]*Patient, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := `SELECT ` + patientColumns + ` FROM patients WHERE clinic_id = $1`
	args := []any{clinicID}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (full_name ILIKE $%d OR phone ILIKE $%d OR patient_mrn ILIKE $%d)`,
			len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, faults.FromStore("patient", fmt.Errorf("patients: list: %w", err))
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		patient, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, patient)
	}
	return out, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var dob *time.Time
	var gender, bloodGroup, phone, email, address, city, ecName, ecPhone *string
	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.MRN,
		&p.FullName,
		&dob,
		&gender,
		&bloodGroup,
		&phone,
		&email,
		&address,
		&city,
		&ecName,
		&ecPhone,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("patient", err)
	}
	p.DateOfBirth = dob
	p.Gender = deref(gender)
	p.BloodGroup = deref(bloodGroup)
	p.Phone = deref(phone)
	p.Email = deref(email)
	p.Address = deref(address)
	p.City = deref(city)
	p.EmergencyContactName = deref(ecName)
	p.EmergencyContactPhone = deref(ecPhone)
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
