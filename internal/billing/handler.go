package billing

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/http/respond"
	"github.com/lifecarehq/clinicflow/internal/tenancy"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

// Handler handles HTTP requests for billing
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new billing handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Issue handles POST /billing requests
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, faults.Validation("invalid request body"))
		return
	}

	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}
	req.ClinicID = principal.ClinicID

	invoice, err := h.svc.Issue(r.Context(), &req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, invoice)
}

// Get handles GET /billing/{invoiceID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	invoice, err := h.svc.Get(r.Context(), principal.ClinicID, chi.URLParam(r, "invoiceID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, invoice)
}

// List handles GET /billing requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	filter := ListFilter{
		PatientID: r.URL.Query().Get("patient_id"),
		Status:    r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	invoices, err := h.svc.List(r.Context(), principal.ClinicID, filter)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	if invoices == nil {
		invoices = []*Invoice{}
	}
	respond.JSON(w, http.StatusOK, invoices)
}
