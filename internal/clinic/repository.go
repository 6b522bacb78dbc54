package clinic

import (
	"context"
	"fmt"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Repository persists per-clinic settings.
type Repository struct {
	q db.Querier
}

// NewRepository creates a repository backed by the pgx pool.
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("clinic: pgx pool required")
	}
	return &Repository{q: q}
}

const settingsColumns = `
	clinic_id, consultation_fee_cents, follow_up_fee_cents,
	appointment_reminder_enabled, clinic_hours_start, clinic_hours_end, updated_at
`

// GetSettings fetches the clinic's settings row.
func (r *Repository) GetSettings(ctx context.Context, clinicID string) (*Settings, error) {
	query := `SELECT ` + settingsColumns + ` FROM clinic_settings WHERE clinic_id = $1`
	var s Settings
	err := r.q.QueryRow(ctx, query, clinicID).Scan(
		&s.ClinicID,
		&s.ConsultationFeeCents,
		&s.FollowUpFeeCents,
		&s.ReminderEnabled,
		&s.HoursStart,
		&s.HoursEnd,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("clinic settings", fmt.Errorf("clinic: get settings: %w", err))
	}
	return &s, nil
}

// UpdateSettings merges the supplied fields in one statement; COALESCE keeps
// the stored value for every nil field, so the partial update is atomic
// without a read-merge-write cycle.
func (r *Repository) UpdateSettings(ctx context.Context, clinicID string, req *UpdateSettingsRequest) (*Settings, error) {
	query := `
		UPDATE clinic_settings
		SET consultation_fee_cents = COALESCE($2, consultation_fee_cents),
		    follow_up_fee_cents = COALESCE($3, follow_up_fee_cents),
		    appointment_reminder_enabled = COALESCE($4, appointment_reminder_enabled),
		    clinic_hours_start = COALESCE($5, clinic_hours_start),
		    clinic_hours_end = COALESCE($6, clinic_hours_end),
		    updated_at = now()
		WHERE clinic_id = $1
		RETURNING ` + settingsColumns
	var s Settings
	err := r.q.QueryRow(ctx, query,
		clinicID,
		req.ConsultationFeeCents,
		req.FollowUpFeeCents,
		req.ReminderEnabled,
		req.HoursStart,
		req.HoursEnd,
	).Scan(
		&s.ClinicID,
		&s.ConsultationFeeCents,
		&s.FollowUpFeeCents,
		&s.ReminderEnabled,
		&s.HoursStart,
		&s.HoursEnd,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("clinic settings", fmt.Errorf("clinic: update settings: %w", err))
	}
	return &s, nil
}
