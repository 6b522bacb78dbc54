package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Repository persists invoices and their line items.
type Repository struct {
	q db.Querier
}

// NewRepository creates a repository backed by the pgx pool.
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("billing: pgx pool required")
	}
	return &Repository{q: q}
}

// insertTx writes the invoice header and all line items inside the caller's
// transaction.
func (r *Repository) insertTx(ctx context.Context, tx pgx.Tx, inv *Invoice) error {
	query := `
		INSERT INTO invoices (
			id, clinic_id, patient_id, appointment_id, invoice_number,
			invoice_date, total_cents, discount_cents, net_cents, status, payment_mode
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	var appointmentID *string
	if inv.AppointmentID != "" {
		appointmentID = &inv.AppointmentID
	}
	err := tx.QueryRow(ctx, query,
		inv.ID,
		inv.ClinicID,
		inv.PatientID,
		appointmentID,
		inv.Number,
		inv.Date,
		inv.TotalCents,
		inv.DiscountCents,
		inv.NetCents,
		inv.Status,
		inv.PaymentMode,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return faults.FromStore("invoice", fmt.Errorf("billing: insert: %w", err))
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (
				id, invoice_id, line_no, description, quantity, unit_price_cents, line_cents, tax_rate_bps
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ID, inv.ID, i+1, item.Description, item.Quantity, item.UnitPriceCents, item.LineCents, item.TaxRateBps)
		if err != nil {
			return faults.FromStore("invoice item", fmt.Errorf("billing: insert item: %w", err))
		}
	}
	return nil
}

const invoiceColumns = `
	id, clinic_id, patient_id, appointment_id, invoice_number,
	invoice_date, total_cents, discount_cents, net_cents, status, payment_mode, created_at
`

// GetByID fetches an invoice with its items, scoped to the clinic.
func (r *Repository) GetByID(ctx context.Context, clinicID, id string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND clinic_id = $2`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id, clinicID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoices for the clinic, newest first. Items are not loaded
// for listings.
func (r *Repository) List(ctx context.Context, clinicID string, filter ListFilter) ([]*Invoice, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE clinic_id = $1`
	args := []any{clinicID}
	if filter.PatientID != "" {
		query += fmt.Sprintf(` AND patient_id = $%d`, len(args)+1)
		args = append(args, filter.PatientID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, len(args)+1)
		args = append(args, filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, faults.FromStore("invoice", fmt.Errorf("billing: list: %w", err))
	}
	defer rows.Close()

	var out []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *Repository) loadItems(ctx context.Context, inv *Invoice) error {
	rows, err := r.q.Query(ctx, `
		SELECT id, description, quantity, unit_price_cents, line_cents, tax_rate_bps
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY line_no ASC
	`, inv.ID)
	if err != nil {
		return faults.FromStore("invoice item", fmt.Errorf("billing: load items: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &item.UnitPriceCents, &item.LineCents, &item.TaxRateBps); err != nil {
			return faults.FromStore("invoice item", err)
		}
		inv.Items = append(inv.Items, item)
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var appointmentID, paymentMode *string
	err := row.Scan(
		&inv.ID,
		&inv.ClinicID,
		&inv.PatientID,
		&appointmentID,
		&inv.Number,
		&inv.Date,
		&inv.TotalCents,
		&inv.DiscountCents,
		&inv.NetCents,
		&inv.Status,
		&paymentMode,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, faults.FromStore("invoice", err)
	}
	if appointmentID != nil {
		inv.AppointmentID = *appointmentID
	}
	if paymentMode != nil {
		inv.PaymentMode = *paymentMode
	}
	return &inv, nil
}
