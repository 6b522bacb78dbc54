package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lifecarehq/clinicflow/internal/api/router"
	"github.com/lifecarehq/clinicflow/internal/billing"
	"github.com/lifecarehq/clinicflow/internal/clinic"
	appconfig "github.com/lifecarehq/clinicflow/internal/config"
	"github.com/lifecarehq/clinicflow/internal/consultations"
	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/internal/observability/metrics"
	"github.com/lifecarehq/clinicflow/internal/patients"
	"github.com/lifecarehq/clinicflow/internal/prescriptions"
	"github.com/lifecarehq/clinicflow/internal/scheduling"
	"github.com/lifecarehq/clinicflow/internal/sequence"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

func main() {
	// Load .env for local development; in deployed environments the variables
	// come from the runtime.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).With("service", "clinicflow-api")
	logger.Info("starting clinicflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"sequence_backend", cfg.SequenceBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Sequence allocator: postgres by default, redis when configured for
	// high-contention check-in bursts.
	var alloc sequence.TxAllocator = sequence.NewPostgresAllocator(pool)
	if cfg.SequenceBackend == "redis" {
		if cfg.RedisAddr == "" {
			logger.Error("SEQUENCE_BACKEND=redis requires REDIS_ADDR")
			os.Exit(1)
		}
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		alloc = sequence.NewRedisAllocator(client)
	}

	registry := prometheus.NewRegistry()
	visitMetrics := metrics.NewVisitMetrics(registry)

	patientsRepo := patients.NewRepository(pool, alloc, cfg.StatementTimeout)
	schedulingRepo := scheduling.NewRepository(pool)
	schedulingSvc := scheduling.NewService(pool, schedulingRepo, alloc, visitMetrics, logger, cfg.StatementTimeout)
	consultRepo := consultations.NewRepository(pool)
	consultSvc := consultations.NewService(pool, consultRepo, visitMetrics, logger, cfg.StatementTimeout)
	rxRepo := prescriptions.NewRepository(pool)
	rxSvc := prescriptions.NewService(pool, rxRepo, alloc, visitMetrics, logger, cfg.StatementTimeout)
	billingRepo := billing.NewRepository(pool)
	billingSvc := billing.NewService(pool, billingRepo, alloc, visitMetrics, logger, cfg.StatementTimeout)
	clinicRepo := clinic.NewRepository(pool)

	r := router.New(&router.Config{
		Logger:               logger,
		PatientsHandler:      patients.NewHandler(patientsRepo, logger),
		SchedulingHandler:    scheduling.NewHandler(schedulingSvc, logger),
		ConsultationsHandler: consultations.NewHandler(consultSvc, rxSvc, logger),
		PrescriptionsHandler: prescriptions.NewHandler(rxSvc, logger),
		BillingHandler:       billing.NewHandler(billingSvc, logger),
		ClinicHandler:        clinic.NewHandler(clinicRepo, logger),
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthSecret:           cfg.AuthJWTSecret,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		DB:                   pool,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
