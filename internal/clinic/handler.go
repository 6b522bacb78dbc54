package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/http/respond"
	"github.com/lifecarehq/clinicflow/internal/tenancy"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

// Handler handles HTTP requests for clinic settings
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new clinic handler
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// GetSettings handles GET /clinic/settings requests
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	settings, err := h.repo.GetSettings(r.Context(), principal.ClinicID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /clinic/settings requests
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, faults.Validation("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	settings, err := h.repo.UpdateSettings(r.Context(), principal.ClinicID, &req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, settings)
}
