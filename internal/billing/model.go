package billing

import (
	"strings"
	"time"

	"github.com/lifecarehq/clinicflow/internal/faults"
)

// Invoice payment statuses. Every invoice is created unpaid; settlement
// transitions happen outside this engine.
const (
	StatusUnpaid = "unpaid"
	StatusPaid   = "paid"
	StatusVoid   = "void"
)

// Invoice is a billed visit. All money fields are integer cents; totals are
// computed server-side and never trusted from the caller.
type Invoice struct {
	ID            string        `json:"id"`
	ClinicID      string        `json:"clinic_id"`
	PatientID     string        `json:"patient_id"`
	AppointmentID string        `json:"appointment_id,omitempty"`
	Number        string        `json:"invoice_number"`
	Date          time.Time     `json:"invoice_date"`
	TotalCents    int64         `json:"total_cents"`
	DiscountCents int64         `json:"discount_cents"`
	NetCents      int64         `json:"net_cents"`
	Status        string        `json:"status"`
	PaymentMode   string        `json:"payment_mode,omitempty"`
	Items         []InvoiceItem `json:"items"`
	CreatedAt     time.Time     `json:"created_at"`
}

// InvoiceItem is one billed line. LineCents = Quantity * UnitPriceCents; the
// tax rate is recorded per line in basis points and does not change the line
// total.
type InvoiceItem struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineCents      int64  `json:"line_cents"`
	TaxRateBps     int    `json:"tax_rate_bps"`
}

// IssueRequest is the input for issuing an invoice.
type IssueRequest struct {
	ClinicID      string      `json:"-"`
	PatientID     string      `json:"patient_id"`
	AppointmentID string      `json:"appointment_id"`
	DiscountCents int64       `json:"discount_cents"`
	PaymentMode   string      `json:"payment_mode"`
	Items         []IssueItem `json:"items"`
}

// IssueItem is one requested invoice line.
type IssueItem struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TaxRateBps     int    `json:"tax_rate_bps"`
}

// Validate checks the issue request.
func (r *IssueRequest) Validate() error {
	if strings.TrimSpace(r.ClinicID) == "" {
		return faults.Validation("clinic id is required")
	}
	if strings.TrimSpace(r.PatientID) == "" {
		return faults.Validation("patient_id is required")
	}
	if len(r.Items) == 0 {
		return faults.Validation("items must not be empty")
	}
	if r.DiscountCents < 0 {
		return faults.Validation("discount_cents must not be negative")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Description) == "" {
			return faults.Newf(faults.KindValidation, "items[%d].description is required", i)
		}
		if item.Quantity <= 0 {
			return faults.Newf(faults.KindValidation, "items[%d].quantity must be positive", i)
		}
		if item.UnitPriceCents < 0 {
			return faults.Newf(faults.KindValidation, "items[%d].unit_price_cents must not be negative", i)
		}
		if item.TaxRateBps < 0 {
			return faults.Newf(faults.KindValidation, "items[%d].tax_rate_bps must not be negative", i)
		}
	}
	return nil
}

// Totals computes the invoice total and the net payable after discount. Net
// never goes below zero even when the discount exceeds the total.
func (r *IssueRequest) Totals() (total, net int64) {
	for _, item := range r.Items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	net = total - r.DiscountCents
	if net < 0 {
		net = 0
	}
	return total, net
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	PatientID string
	Status    string
	Limit     int
	Offset    int
}
