package scheduling

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/http/respond"
	"github.com/lifecarehq/clinicflow/internal/tenancy"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

// Handler handles HTTP requests for appointments and the queue
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new scheduling handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /appointments requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
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

	appt, err := h.svc.Create(r.Context(), &req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, appt)
}

// ListAppointmentsResponse is the response for listing appointments
type ListAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
	Count        int            `json:"count"`
}

// List handles GET /appointments requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	filter := ListFilter{
		DoctorID: r.URL.Query().Get("doctor_id"),
		Status:   r.URL.Query().Get("status"),
	}
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			respond.Error(w, h.logger, faults.Validation("date must be YYYY-MM-DD"))
			return
		}
		filter.Date = &day
	}

	list, err := h.svc.List(r.Context(), principal.ClinicID, filter)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, ListAppointmentsResponse{Appointments: list, Count: len(list)})
}

// Get handles GET /appointments/{appointmentID} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	appt, err := h.svc.Get(r.Context(), principal.ClinicID, chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// CheckInResponse pairs the transitioned appointment with its queue entry.
type CheckInResponse struct {
	Appointment *Appointment `json:"appointment"`
	QueueEntry  *QueueEntry  `json:"queue_entry"`
}

// CheckIn handles PUT /appointments/{appointmentID}/check-in requests
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	appt, entry, err := h.svc.CheckIn(r.Context(), principal.ClinicID, chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, CheckInResponse{Appointment: appt, QueueEntry: entry})
}

// QueueResponse is the response for reading the daily queue
type QueueResponse struct {
	Queue []*QueueEntry `json:"queue"`
	Count int           `json:"count"`
}

// GetQueue handles GET /appointments/queue requests
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, faults.Validation("missing clinic context"))
		return
	}

	queue, err := h.svc.GetQueue(r.Context(), principal.ClinicID, r.URL.Query().Get("doctor_id"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, QueueResponse{Queue: queue, Count: len(queue)})
}
