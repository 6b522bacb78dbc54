package patients

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

// Handler handles HTTP requests for patients
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new patients handler
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Register handles POST /patients requests
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterPatientRequest
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

	patient, err := h.repo.Register(r.Context(), &req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	h.logger.Info("patient registered", "patient_id", patient.ID, "mrn", patient.MRN)
	respond.JSON(w, http.StatusCreated, patient)
}

// ListPatientsResponse is the response for listing patients
type ListPatientsResponse struct {
	Patients []*Patient `json:"patients"`
	Count    int        `json:"count"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
}

// List handles GET /patients requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	filter := ListFilter{Limit: 20}
	filter.Search = r.URL.Query().Get("search")
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	list, err := h.repo.List(r.Context(), principal.ClinicID, filter)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, http.StatusOK, ListPatientsResponse{
		Patients: list,
		Count:    len(list),
		Offset:   filter.Offset,
		Limit:    filter.Limit,
	})
}

// Get handles GET /patients/{patientID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	patient, err := h.repo.GetByID(r.Context(), principal.ClinicID, chi.URLParam(r, "patientID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, patient)
}
