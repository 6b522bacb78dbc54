package scheduling

import (
	"strings"
	"time"

	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Appointment statuses. An appointment is never deleted, only transitioned.
const (
	StatusScheduled = "scheduled"
	StatusCheckedIn = "checked_in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Queue entry statuses.
const (
	QueueWaiting    = "waiting"
	QueueConsulting = "consulting"
	QueueCompleted  = "completed"
)

// Appointment is a booked clinic visit.
type Appointment struct {
	ID          string     `json:"id"`
	ClinicID    string     `json:"clinic_id"`
	PatientID   string     `json:"patient_id"`
	DoctorID    string     `json:"doctor_id"`
	Date        time.Time  `json:"date"`
	Time        string     `json:"time"`
	Datetime    time.Time  `json:"datetime"`
	Type        string     `json:"type,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// QueueEntry is a checked-in patient's place in a doctor's daily line.
// Exactly one entry exists per appointment.
type QueueEntry struct {
	ID            string    `json:"id"`
	ClinicID      string    `json:"clinic_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	AppointmentID string    `json:"appointment_id"`
	QueueDate     time.Time `json:"queue_date"`
	Position      int       `json:"queue_position"`
	CheckInTime   time.Time `json:"check_in_time"`
	Status        string    `json:"status"`
}

// QueueDay truncates t to the UTC calendar day the queue keys on. The stored
// queue_date, the allocator scope and the queue read must all derive the day
// from this one clock; letting the database stamp its own CURRENT_DATE would
// disagree with the allocator near midnight in a non-UTC session timezone.
func QueueDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// QueueStatusRank orders queue entries for display: active consultations
// first, then the waiting line, completed at the bottom. Ranking by an
// explicit enumeration instead of sorting the status text keeps the order
// stable no matter what the status strings collate to.
func QueueStatusRank(status string) int {
	switch status {
	case QueueConsulting:
		return 0
	case QueueWaiting:
		return 1
	default:
		return 2
	}
}

// CreateAppointmentRequest is the input for booking an appointment.
// Overlap validation is deliberately out of scope; the engine does not
// reject conflicting times.
type CreateAppointmentRequest struct {
	ClinicID  string `json:"-"`
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}

// Validate checks the request and resolves the combined datetime.
func (r *CreateAppointmentRequest) Validate() (time.Time, time.Time, error) {
	if strings.TrimSpace(r.ClinicID) == "" {
		return time.Time{}, time.Time{}, faults.Validation("clinic id is required")
	}
	if strings.TrimSpace(r.PatientID) == "" {
		return time.Time{}, time.Time{}, faults.Validation("patient_id is required")
	}
	if strings.TrimSpace(r.DoctorID) == "" {
		return time.Time{}, time.Time{}, faults.Validation("doctor_id is required")
	}
	day, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}, time.Time{}, faults.Validation("date must be YYYY-MM-DD")
	}
	clock, err := time.Parse("15:04", r.Time)
	if err != nil {
		return time.Time{}, time.Time{}, faults.Validation("time must be HH:MM")
	}
	datetime := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return day, datetime, nil
}

// ListFilter narrows appointment listings.
type ListFilter struct {
	Date     *time.Time
	DoctorID string
	Status   string
}
