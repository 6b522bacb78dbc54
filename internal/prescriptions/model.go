package prescriptions

import (
	"strings"
	"time"

	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Prescription is the header of an issued prescription. Number is the
// clinic-scoped sequential display identifier; ID is internal.
type Prescription struct {
	ID             string     `json:"id"`
	ClinicID       string     `json:"clinic_id"`
	ConsultationID string     `json:"consultation_id"`
	PatientID      string     `json:"patient_id"`
	DoctorID       string     `json:"doctor_id"`
	Number         string     `json:"prescription_number"`
	Date           time.Time  `json:"prescription_date"`
	Instructions   string     `json:"instructions,omitempty"`
	Medicines      []Medicine `json:"medicines"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Medicine is one prescribed line item, kept in prescription order.
type Medicine struct {
	ID           string `json:"id"`
	DrugName     string `json:"drug_name"`
	Strength     string `json:"strength,omitempty"`
	Form         string `json:"form,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	DurationDays int    `json:"duration_days,omitempty"`
	Instructions string `json:"special_instructions,omitempty"`
}

// IssueRequest is the input for issuing a prescription.
type IssueRequest struct {
	ClinicID       string     `json:"-"`
	ConsultationID string     `json:"consultation_id"`
	PatientID      string     `json:"patient_id"`
	DoctorID       string     `json:"doctor_id"`
	Medicines      []Medicine `json:"medicines"`
	Instructions   string     `json:"instructions"`
}

// Validate checks the issue request.
func (r *IssueRequest) Validate() error {
	if strings.TrimSpace(r.ClinicID) == "" {
		return faults.Validation("clinic id is required")
	}
	if strings.TrimSpace(r.ConsultationID) == "" {
		return faults.Validation("consultation_id is required")
	}
	if strings.TrimSpace(r.PatientID) == "" {
		return faults.Validation("patient_id is required")
	}
	if strings.TrimSpace(r.DoctorID) == "" {
		return faults.Validation("doctor_id is required")
	}
	if len(r.Medicines) == 0 {
		return faults.Validation("medicines must not be empty")
	}
	for i, m := range r.Medicines {
		if strings.TrimSpace(m.DrugName) == "" {
			return faults.Newf(faults.KindValidation, "medicines[%d].drug_name is required", i)
		}
		if m.DurationDays < 0 {
			return faults.Newf(faults.KindValidation, "medicines[%d].duration_days must not be negative", i)
		}
	}
	return nil
}
