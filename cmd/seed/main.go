package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/lifecarehq/clinicflow/internal/db"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	logger := logging.Default().With("service", "clinicflow-seed")
	logger.Info("seed starting")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicID, err := seedClinic(context.Background(), pool)
	if err != nil {
		logger.Error("failed to seed clinic", "error", err)
		os.Exit(1)
	}
	logger.Info("clinic seeded", "clinic_id", clinicID)

	if err := seedDoctors(context.Background(), pool, clinicID, 8); err != nil {
		logger.Error("failed to seed doctors", "error", err)
		os.Exit(1)
	}
	logger.Info("doctors seeded", "count", 8)

	if err := seedPatients(context.Background(), pool, clinicID, 200); err != nil {
		logger.Error("failed to seed patients", "error", err)
		os.Exit(1)
	}
	logger.Info("patients seeded", "count", 200)

	logger.Info("seed complete", "clinic_id", clinicID)
}

func seedClinic(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	id := uuid.NewString()
	_, err := pool.Exec(ctx, `
		INSERT INTO clinics (id, name, address, phone)
		VALUES ($1, $2, $3, $4)
	`, id, gofakeit.Company()+" Clinic", gofakeit.Address().Address, gofakeit.Phone())
	if err != nil {
		return "", err
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO clinic_settings (clinic_id, consultation_fee_cents, follow_up_fee_cents)
		VALUES ($1, $2, $3)
		ON CONFLICT (clinic_id) DO NOTHING
	`, id, int64(gofakeit.Number(300, 800)*100), int64(gofakeit.Number(100, 400)*100))
	if err != nil {
		return "", err
	}
	return id, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinicID string, count int) error {
	specializations := []string{
		"General Medicine",
		"Pediatrics",
		"Dermatology",
		"Cardiology",
		"Orthopedics",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, clinic_id, full_name, specialization)
			VALUES ($1, $2, $3, $4)
		`, uuid.NewString(), clinicID, "Dr. "+gofakeit.Name(), spec)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, clinicID string, count int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		// Seeding bypasses the HTTP path, so the MRN counter is advanced the
		// same way the allocator does it.
		var seq int64
		err := tx.QueryRow(ctx, `
			INSERT INTO clinic_sequences (clinic_id, name, scope_key, value)
			VALUES ($1, 'mrn', '', 1)
			ON CONFLICT (clinic_id, name, scope_key)
			DO UPDATE SET value = clinic_sequences.value + 1, updated_at = now()
			RETURNING value
		`, clinicID).Scan(&seq)
		if err != nil {
			return err
		}

		dob := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		_, err = tx.Exec(ctx, `
			INSERT INTO patients (id, clinic_id, patient_mrn, full_name, date_of_birth, gender, phone, email, city)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.NewString(), clinicID, fmt.Sprintf("MRN-%06d", seq), gofakeit.Name(), dob,
			gofakeit.Gender(), gofakeit.Phone(), gofakeit.Email(), gofakeit.City())
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
