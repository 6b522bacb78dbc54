package prescriptions

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/http/respond"
	"github.com/lifecarehq/clinicflow/internal/tenancy"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

// Handler handles HTTP requests for prescriptions
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new prescriptions handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Issue handles POST /consultations/prescription requests
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

	prescription, err := h.svc.Issue(r.Context(), &req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, prescription)
}

// Get handles GET /prescriptions/{prescriptionID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	prescription, err := h.svc.Get(r.Context(), principal.ClinicID, chi.URLParam(r, "prescriptionID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, prescription)
}
