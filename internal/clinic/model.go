package clinic

import (
	"time"

	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Settings holds per-clinic operating defaults. Exactly one row exists per
// clinic; fees are integer cents, hours are HH:MM wall-clock strings.
type Settings struct {
	ClinicID             string    `json:"clinic_id"`
	ConsultationFeeCents int64     `json:"consultation_fee_cents"`
	FollowUpFeeCents     int64     `json:"follow_up_fee_cents"`
	ReminderEnabled      bool      `json:"appointment_reminder_enabled"`
	HoursStart           string    `json:"clinic_hours_start"`
	HoursEnd             string    `json:"clinic_hours_end"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// UpdateSettingsRequest carries a partial settings update. Nil fields keep
// their stored values.
type UpdateSettingsRequest struct {
	ConsultationFeeCents *int64  `json:"consultation_fee_cents"`
	FollowUpFeeCents     *int64  `json:"follow_up_fee_cents"`
	ReminderEnabled      *bool   `json:"appointment_reminder_enabled"`
	HoursStart           *string `json:"clinic_hours_start"`
	HoursEnd             *string `json:"clinic_hours_end"`
}

// Validate checks the supplied fields.
func (r *UpdateSettingsRequest) Validate() error {
	if r.ConsultationFeeCents != nil && *r.ConsultationFeeCents < 0 {
		return faults.Validation("consultation_fee_cents must not be negative")
	}
	if r.FollowUpFeeCents != nil && *r.FollowUpFeeCents < 0 {
		return faults.Validation("follow_up_fee_cents must not be negative")
	}
	if r.HoursStart != nil && !validClock(*r.HoursStart) {
		return faults.Validation("clinic_hours_start must be HH:MM")
	}
	if r.HoursEnd != nil && !validClock(*r.HoursEnd) {
		return faults.Validation("clinic_hours_end must be HH:MM")
	}
	return nil
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
