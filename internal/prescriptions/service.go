package prescriptions

import (
	"context"
	"fmt"
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

var tracer = otel.Tracer("clinicflow/prescriptions")

// FormatNumber renders an allocated ordinal as a display prescription number.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("RX-%06d", seq)
}

// Service issues prescriptions. Number allocation and the header plus all
// medicine lines share one transaction, so a failed issue never burns a
// visible number and a prescription is never stored half-written.
type Service struct {
	repo      *Repository
	q         db.Querier
	alloc     sequence.TxAllocator
	metrics   *metrics.VisitMetrics
	logger    *logging.Logger
	txTimeout time.Duration
	now       func() time.Time
}

// NewService wires the prescription service.
func NewService(q db.Querier, repo *Repository, alloc sequence.TxAllocator, m *metrics.VisitMetrics, logger *logging.Logger, txTimeout time.Duration) *Service {
	if alloc == nil {
		panic("prescriptions: sequence allocator required")
	}
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
		now:       time.Now,
	}
}

// Issue creates the prescription for a consultation. At most one prescription
// per consultation; a second issue fails with a conflict.
func (s *Service) Issue(ctx context.Context, req *IssueRequest) (*Prescription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "prescriptions.Issue")
	span.SetAttributes(attribute.String("consultation.id", req.ConsultationID))
	defer span.End()

	p := &Prescription{
		ID:             uuid.NewString(),
		ClinicID:       req.ClinicID,
		ConsultationID: req.ConsultationID,
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Date:           s.now().UTC(),
		Instructions:   req.Instructions,
		Medicines:      req.Medicines,
	}

	err := db.WithTx(ctx, s.q, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := s.alloc.NextInTx(ctx, tx, req.ClinicID, sequence.NamePrescription, "")
		if err != nil {
			return err
		}
		p.Number = FormatNumber(seq)
		return s.repo.insertTx(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAllocation(sequence.NamePrescription)
	s.logger.Info("prescription issued",
		"prescription_id", p.ID,
		"prescription_number", p.Number,
		"consultation_id", p.ConsultationID,
		"clinic_id", p.ClinicID,
		"medicines", len(p.Medicines),
	)
	return p, nil
}

// GetByConsultation fetches the prescription issued for a consultation.
func (s *Service) GetByConsultation(ctx context.Context, clinicID, consultationID string) (*Prescription, error) {
	return s.repo.GetByConsultation(ctx, clinicID, consultationID)
}

// Get fetches a prescription by id.
func (s *Service) Get(ctx context.Context, clinicID, id string) (*Prescription, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}
