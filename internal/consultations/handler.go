package consultations

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/http/respond"
	"github.com/lifecarehq/clinicflow/internal/prescriptions"
	"github.com/lifecarehq/clinicflow/internal/tenancy"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

// Handler handles HTTP requests for consultations
type Handler struct {
	svc    *Service
	rx     *prescriptions.Service
	logger *logging.Logger
}

// NewHandler creates a new consultations handler. The prescription service is
// used to hydrate GET responses with the issued prescription, if any.
func NewHandler(svc *Service, rx *prescriptions.Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, rx: rx, logger: logger}
}

type startRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Start handles POST /consultations requests
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, faults.Validation("invalid request body"))
		return
	}
	if req.AppointmentID == "" {
		respond.Error(w, h.logger, faults.Validation("appointment_id is required"))
		return
	}

	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	consultation, err := h.svc.Start(r.Context(), principal.ClinicID, req.AppointmentID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, consultation)
}

// GetResponse hydrates a consultation with its prescription, if issued.
type GetResponse struct {
	*Consultation
	Prescription *prescriptions.Prescription `json:"prescription,omitempty"`
}

// Get handles GET /consultations/{consultationID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	id := chi.URLParam(r, "consultationID")
	consultation, err := h.svc.Get(r.Context(), principal.ClinicID, id)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	resp := GetResponse{Consultation: consultation}
	rx, err := h.rx.GetByConsultation(r.Context(), principal.ClinicID, id)
	switch {
	case err == nil:
		resp.Prescription = rx
	case faults.KindOf(err) == faults.KindNotFound:
		// No prescription issued yet.
	default:
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /consultations/{consultationID} requests
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var input UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, h.logger, faults.Validation("invalid request body"))
		return
	}

	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	consultation, err := h.svc.Update(r.Context(), principal.ClinicID, chi.URLParam(r, "consultationID"), &input)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, consultation)
}

type completeRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// CompleteVisit handles POST /consultations/complete requests
func (h *Handler) CompleteVisit(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, faults.Validation("invalid request body"))
		return
	}
	if req.AppointmentID == "" {
		respond.Error(w, h.logger, faults.Validation("appointment_id is required"))
		return
	}

	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	if err := h.svc.CompleteVisit(r.Context(), principal.ClinicID, req.AppointmentID); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}
