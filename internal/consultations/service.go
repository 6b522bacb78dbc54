package consultations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/observability/metrics"
	"github.com/lifecarehq/clinicflow/internal/scheduling"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

var tracer = otel.Tracer("clinicflow/consultations")

// Service runs the consultation session lifecycle: waiting → consulting →
// completed on the queue entry, checked_in → completed on the appointment.
type Service struct {
	repo      *Repository
	q         db.Querier
	metrics   *metrics.VisitMetrics
	logger    *logging.Logger
	txTimeout time.Duration
}

// NewService wires the consultation service.
func NewService(q db.Querier, repo *Repository, m *metrics.VisitMetrics, logger *logging.Logger, txTimeout time.Duration) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, q: q, metrics: m, logger: logger, txTimeout: txTimeout}
}

// Start opens a consultation for a checked-in appointment and promotes its
// queue entry to consulting, atomically. A second start for the same
// appointment fails with a conflict; the caller should fetch the existing
// consultation instead of retrying.
func (s *Service) Start(ctx context.Context, clinicID, appointmentID string) (*Consultation, error) {
	ctx, span := tracer.Start(ctx, "consultations.Start")
	span.SetAttributes(attribute.String("appointment.id", appointmentID))
	defer span.End()

	consultation := &Consultation{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
	}

	err := db.WithTx(ctx, s.q, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		status, err := s.repo.appointmentStatusTx(ctx, tx, clinicID, appointmentID)
		if err != nil {
			return err
		}
		if status != scheduling.StatusCheckedIn {
			return faults.Conflict("appointment is " + status + ", expected checked_in")
		}
		if err := s.repo.insertTx(ctx, tx, consultation); err != nil {
			return err
		}
		return s.repo.markQueueConsultingTx(ctx, tx, clinicID, appointmentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("consultation started",
		"consultation_id", consultation.ID,
		"appointment_id", appointmentID,
		"clinic_id", clinicID,
	)
	return consultation, nil
}

// Update merges the supplied fields into the consultation and persists the
// result. Omitted fields keep their stored values. The read takes a row lock
// so two concurrent partial updates serialize instead of overwriting each
// other's fields. Freely repeatable.
func (s *Service) Update(ctx context.Context, clinicID, consultationID string, input *UpdateInput) (*Consultation, error) {
	var consultation *Consultation
	err := db.WithTx(ctx, s.q, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		consultation, err = s.repo.getScopedForUpdateTx(ctx, tx, clinicID, consultationID)
		if err != nil {
			return err
		}
		input.ApplyTo(consultation)
		return s.repo.updateFieldsTx(ctx, tx, consultation)
	})
	if err != nil {
		return nil, err
	}
	return consultation, nil
}

// Get fetches a consultation scoped to the clinic.
func (s *Service) Get(ctx context.Context, clinicID, consultationID string) (*Consultation, error) {
	return s.repo.GetScoped(ctx, clinicID, consultationID)
}

// CompleteVisit closes the visit: the queue entry and the appointment both
// reach completed in one transaction.
func (s *Service) CompleteVisit(ctx context.Context, clinicID, appointmentID string) error {
	ctx, span := tracer.Start(ctx, "consultations.CompleteVisit")
	span.SetAttributes(attribute.String("appointment.id", appointmentID))
	defer span.End()

	start := time.Now()
	err := db.WithTx(ctx, s.q, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.completeAppointmentTx(ctx, tx, clinicID, appointmentID); err != nil {
			return err
		}
		return s.repo.completeQueueEntryTx(ctx, tx, clinicID, appointmentID)
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveOperation("complete_visit", time.Since(start).Seconds())
	s.logger.Info("visit completed", "appointment_id", appointmentID, "clinic_id", clinicID)
	return nil
}
