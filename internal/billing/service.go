package billing

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

var tracer = otel.Tracer("clinicflow/billing")

// FormatNumber renders an allocated ordinal as a display invoice number.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("INV-%06d", seq)
}

// Service issues invoices. Amount arithmetic is integer cents end to end;
// number allocation shares the insert transaction so a failed issue never
// burns a visible invoice number.
type Service struct {
	repo      *Repository
	q         db.Querier
	alloc     sequence.TxAllocator
	metrics   *metrics.VisitMetrics
	logger    *logging.Logger
	txTimeout time.Duration
	now       func() time.Time
}

// NewService wires the billing service.
func NewService(q db.Querier, repo *Repository, alloc sequence.TxAllocator, m *metrics.VisitMetrics, logger *logging.Logger, txTimeout time.Duration) *Service {
	if alloc == nil {
		panic("billing: sequence allocator required")
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

// Issue creates an invoice with server-computed totals.
func (s *Service) Issue(ctx context.Context, req *IssueRequest) (*Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "billing.Issue")
	span.SetAttributes(attribute.String("patient.id", req.PatientID))
	defer span.End()

	total, net := req.Totals()
	inv := &Invoice{
		ID:            uuid.NewString(),
		ClinicID:      req.ClinicID,
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Date:          s.now().UTC(),
		TotalCents:    total,
		DiscountCents: req.DiscountCents,
		NetCents:      net,
		Status:        StatusUnpaid,
		PaymentMode:   req.PaymentMode,
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, InvoiceItem{
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineCents:      int64(item.Quantity) * item.UnitPriceCents,
			TaxRateBps:     item.TaxRateBps,
		})
	}

	err := db.WithTx(ctx, s.q, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		seq, err := s.alloc.NextInTx(ctx, tx, req.ClinicID, sequence.NameInvoice, "")
		if err != nil {
			return err
		}
		inv.Number = FormatNumber(seq)
		return s.repo.insertTx(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAllocation(sequence.NameInvoice)
	s.logger.Info("invoice issued",
		"invoice_id", inv.ID,
		"invoice_number", inv.Number,
		"patient_id", inv.PatientID,
		"clinic_id", inv.ClinicID,
		"net_cents", inv.NetCents,
	)
	return inv, nil
}

// Get fetches an invoice with its items.
func (s *Service) Get(ctx context.Context, clinicID, id string) (*Invoice, error) {
	return s.repo.GetByID(ctx, clinicID, id)
}

// List returns invoices for the clinic, newest first.
func (s *Service) List(ctx context.Context, clinicID string, filter ListFilter) ([]*Invoice, error) {
	return s.repo.List(ctx, clinicID, filter)
}
