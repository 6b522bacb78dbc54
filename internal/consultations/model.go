package consultations

import "time"

// Consultation is the clinical record of one visit. At most one consultation
// exists per appointment; the schema enforces it with a unique index.
type Consultation struct {
	ID                      string    `json:"id"`
	AppointmentID           string    `json:"appointment_id"`
	StartedAt               time.Time `json:"started_at"`
	ChiefComplaint          string    `json:"chief_complaint,omitempty"`
	HistoryOfPresentIllness string    `json:"history_of_present_illness,omitempty"`
	PastMedicalHistory      string    `json:"past_medical_history,omitempty"`
	PhysicalExamination     string    `json:"physical_examination,omitempty"`
	Assessment              string    `json:"assessment,omitempty"`
	Plan                    string    `json:"plan,omitempty"`
	Vitals                  string    `json:"vitals,omitempty"`
	DoctorNotes             string    `json:"doctor_notes,omitempty"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// UpdateInput carries the partial update for a consultation. Each field is a
// pointer so "not supplied" (nil) and "explicitly clear" (pointer to empty
// string) stay distinguishable; the merge happens in application code, not
// through store-side null coalescing.
type UpdateInput struct {
	ChiefComplaint          *string `json:"chief_complaint"`
	HistoryOfPresentIllness *string `json:"history_of_present_illness"`
	PastMedicalHistory      *string `json:"past_medical_history"`
	PhysicalExamination     *string `json:"physical_examination"`
	Assessment              *string `json:"assessment"`
	Plan                    *string `json:"plan"`
	Vitals                  *string `json:"vitals"`
	DoctorNotes             *string `json:"doctor_notes"`
}

// ApplyTo merges only the supplied fields onto the consultation, leaving
// omitted fields untouched.
func (in *UpdateInput) ApplyTo(c *Consultation) {
	if in.ChiefComplaint != nil {
		c.ChiefComplaint = *in.ChiefComplaint
	}
	if in.HistoryOfPresentIllness != nil {
		c.HistoryOfPresentIllness = *in.HistoryOfPresentIllness
	}
	if in.PastMedicalHistory != nil {
		c.PastMedicalHistory = *in.PastMedicalHistory
	}
	if in.PhysicalExamination != nil {
		c.PhysicalExamination = *in.PhysicalExamination
	}
	if in.Assessment != nil {
		c.Assessment = *in.Assessment
	}
	if in.Plan != nil {
		c.Plan = *in.Plan
	}
	if in.Vitals != nil {
		c.Vitals = *in.Vitals
	}
	if in.DoctorNotes != nil {
		c.DoctorNotes = *in.DoctorNotes
	}
}
