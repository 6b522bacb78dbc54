package patients

import (
	"strings"
	"time"

	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Patient is a registered clinic patient. ID is the internal identifier; MRN
// is the clinic-scoped sequential display identifier.
type Patient struct {
	ID                    string     `json:"id"`
	ClinicID              string     `json:"clinic_id"`
	MRN                   string     `json:"mrn"`
	FullName              string     `json:"full_name"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                string     `json:"gender,omitempty"`
	BloodGroup            string     `json:"blood_group,omitempty"`
	Phone                 string     `json:"phone,omitempty"`
	Email                 string     `json:"email,omitempty"`
	Address               string     `json:"address,omitempty"`
	City                  string     `json:"city,omitempty"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// RegisterPatientRequest is the input for registering a patient.
type RegisterPatientRequest struct {
	ClinicID              string     `json:"-"`
	FullName              string     `json:"full_name"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	Gender                string     `json:"gender,omitempty"`
	BloodGroup            string     `json:"blood_group,omitempty"`
	Phone                 string     `json:"phone,omitempty"`
	Email                 string     `json:"email,omitempty"`
	Address               string     `json:"address,omitempty"`
	City                  string     `json:"city,omitempty"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty"`
}

// Validate checks the register request.
func (r *RegisterPatientRequest) Validate() error {
	if strings.TrimSpace(r.ClinicID) == "" {
		return faults.Validation("clinic id is required")
	}
	if strings.TrimSpace(r.FullName) == "" {
		return faults.Validation("full_name is required")
	}
	return nil
}

// ListFilter narrows patient listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
