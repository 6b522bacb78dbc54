package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lifecarehq/clinicflow/internal/billing"
	"github.com/lifecarehq/clinicflow/internal/clinic"
	"github.com/lifecarehq/clinicflow/internal/consultations"
	httpmiddleware "github.com/lifecarehq/clinicflow/internal/http/middleware"
	"github.com/lifecarehq/clinicflow/internal/http/respond"
	"github.com/lifecarehq/clinicflow/internal/patients"
	"github.com/lifecarehq/clinicflow/internal/prescriptions"
	"github.com/lifecarehq/clinicflow/internal/scheduling"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

// Pinger reports store liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	PatientsHandler      *patients.Handler
	SchedulingHandler    *scheduling.Handler
	ConsultationsHandler *consultations.Handler
	PrescriptionsHandler *prescriptions.Handler
	BillingHandler       *billing.Handler
	ClinicHandler        *clinic.Handler
	MetricsHandler       http.Handler
	AuthSecret           string
	CORSAllowedOrigins   []string
	DB                   Pinger
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck(cfg.DB))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Clinic-scoped API routes
	r.Group(func(clinic chi.Router) {
		clinic.Use(httpmiddleware.ClinicJWT(cfg.AuthSecret))
		clinic.Use(httpmiddleware.RateLimit(50, 100))

		clinic.Route("/patients", func(r chi.Router) {
			r.Post("/", cfg.PatientsHandler.Register)
			r.Get("/", cfg.PatientsHandler.List)
			r.Get("/{patientID}", cfg.PatientsHandler.Get)
		})

		clinic.Route("/appointments", func(r chi.Router) {
			r.Post("/", cfg.SchedulingHandler.Create)
			r.Get("/", cfg.SchedulingHandler.List)
			r.Get("/queue", cfg.SchedulingHandler.GetQueue)
			r.Get("/{appointmentID}", cfg.SchedulingHandler.Get)
			r.Put("/{appointmentID}/check-in", cfg.SchedulingHandler.CheckIn)
		})

		clinic.Route("/consultations", func(r chi.Router) {
			r.Post("/", cfg.ConsultationsHandler.Start)
			r.Post("/complete", cfg.ConsultationsHandler.CompleteVisit)
			r.Post("/prescription", cfg.PrescriptionsHandler.Issue)
			r.Get("/{consultationID}", cfg.ConsultationsHandler.Get)
			r.Put("/{consultationID}", cfg.ConsultationsHandler.Update)
		})

		clinic.Get("/prescriptions/{prescriptionID}", cfg.PrescriptionsHandler.Get)

		clinic.Route("/billing", func(r chi.Router) {
			r.Post("/", cfg.BillingHandler.Issue)
			r.Get("/", cfg.BillingHandler.List)
			r.Get("/{invoiceID}", cfg.BillingHandler.Get)
		})

		if cfg.ClinicHandler != nil {
			clinic.Route("/clinic/settings", func(r chi.Router) {
				r.Get("/", cfg.ClinicHandler.GetSettings)
				r.Put("/", cfg.ClinicHandler.UpdateSettings)
			})
		}
	})

	return r
}

func healthCheck(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		respond.JSON(w, code, map[string]string{"status": status})
	}
}
