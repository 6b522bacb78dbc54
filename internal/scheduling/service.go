package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/observability/metrics"
	"github.com/lifecarehq/clinicflow/internal/sequence"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

var tracer = otel.Tracer("clinicflow/scheduling")

// Service coordinates appointment booking and the check-in flow.
type Service struct {
	repo      *Repository
	q         db.Querier
	alloc     sequence.TxAllocator
	metrics   *metrics.VisitMetrics
	logger    *logging.Logger
	txTimeout time.Duration
	now       func() time.Time
}

// NewService wires the scheduling service.
func NewService(q db.Querier, repo *Repository, alloc sequence.TxAllocator, m *metrics.VisitMetrics, logger *logging.Logger, txTimeout time.Duration) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		q:         q,
		alloc:     alloc,
		metrics:   m,
		logger:    logger,
		txTimeout: txTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create books an appointment in scheduled status.
func (s *Service) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	day, datetime, err := req.Validate()
	if err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:        uuid.NewString(),
		ClinicID:  req.ClinicID,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      day,
		Time:      req.Time,
		Datetime:  datetime,
		Type:      req.Type,
		Reason:    req.Reason,
		Status:    StatusScheduled,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"clinic_id", appt.ClinicID,
		"doctor_id", appt.DoctorID,
		"datetime", appt.Datetime,
	)
	return appt, nil
}

// List returns appointments matching the filter, datetime ascending.
func (s *Service) List(ctx context.Context, clinicID string, filter ListFilter) ([]*Appointment, error) {
	return s.repo.List(ctx, clinicID, filter)
}

// Get fetches one appointment scoped to the clinic.
func (s *Service) Get(ctx context.Context, clinicID, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}

// CheckIn transitions a scheduled appointment to checked_in and enrolls the
// patient in the doctor's daily queue as one atomic unit. The queue position
// comes from the sequence allocator inside the same transaction, so either
// both the status transition and the enrollment commit, or neither does.
func (s *Service) CheckIn(ctx context.Context, clinicID, appointmentID string) (*Appointment, *QueueEntry, error) {
	ctx, span := tracer.Start(ctx, "scheduling.CheckIn")
	span.SetAttributes(attribute.String("appointment.id", appointmentID))
	defer span.End()

	start := s.now()
	var appt *Appointment
	var entry *QueueEntry

	err := db.WithTx(ctx, s.q, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		appt, err = s.repo.transitionToCheckedInTx(ctx, tx, clinicID, appointmentID)
		if err != nil {
			return err
		}

		// One clock decides the calendar day for both the allocator scope and
		// the stored queue_date, so positions and the uniqueness key can never
		// straddle midnight.
		day := QueueDay(start)
		scope := sequence.QueueScope(appt.DoctorID, day)
		position, err := s.alloc.NextInTx(ctx, tx, clinicID, sequence.NameQueue, scope)
		if err != nil {
			return err
		}
		s.metrics.ObserveAllocation(sequence.NameQueue)

		entry = &QueueEntry{
			ID:            uuid.NewString(),
			ClinicID:      clinicID,
			DoctorID:      appt.DoctorID,
			PatientID:     appt.PatientID,
			AppointmentID: appt.ID,
			QueueDate:     day,
			Position:      int(position),
			Status:        QueueWaiting,
		}
		return s.repo.insertQueueEntryTx(ctx, tx, entry)
	})
	if err != nil {
		s.metrics.ObserveCheckIn("error")
		return nil, nil, err
	}

	s.metrics.ObserveCheckIn("ok")
	s.metrics.ObserveOperation("check_in", s.now().Sub(start).Seconds())
	s.logger.Info("patient checked in",
		"appointment_id", appt.ID,
		"clinic_id", clinicID,
		"doctor_id", appt.DoctorID,
		"queue_position", entry.Position,
	)
	return appt, entry, nil
}

// GetQueue returns today's queue for the clinic, optionally narrowed to one
// doctor. Read-only; no side effects.
func (s *Service) GetQueue(ctx context.Context, clinicID, doctorID string) ([]*QueueEntry, error) {
	return s.repo.QueueForDay(ctx, clinicID, doctorID, s.now())
}
