// Package tests exercises the full visit lifecycle through the HTTP surface:
// book, check in, consult, prescribe, complete, invoice. The store is mocked;
// the assertions pin the wire contract and the transactional shape of each
// step.
package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/require"

	"github.com/lifecarehq/clinicflow/internal/api/router"
	"github.com/lifecarehq/clinicflow/internal/billing"
	"github.com/lifecarehq/clinicflow/internal/clinic"
	"github.com/lifecarehq/clinicflow/internal/consultations"
	"github.com/lifecarehq/clinicflow/internal/patients"
	"github.com/lifecarehq/clinicflow/internal/prescriptions"
	"github.com/lifecarehq/clinicflow/internal/scheduling"
	"github.com/lifecarehq/clinicflow/internal/sequence"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

const (
	secret    = "lifecycle-secret"
	clinicID  = "7f9f5ab0-0000-4000-8000-000000000001"
	patientID = "7f9f5ab0-0000-4000-8000-0000000000a1"
	doctorID  = "7f9f5ab0-0000-4000-8000-0000000000d0"
)

func newStack(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := logging.New("error")
	alloc := sequence.NewPostgresAllocator(mock)

	schedulingRepo := scheduling.NewRepository(mock)
	schedulingSvc := scheduling.NewService(mock, schedulingRepo, alloc, nil, logger, 0)
	consultRepo := consultations.NewRepository(mock)
	consultSvc := consultations.NewService(mock, consultRepo, nil, logger, 0)
	rxRepo := prescriptions.NewRepository(mock)
	rxSvc := prescriptions.NewService(mock, rxRepo, alloc, nil, logger, 0)
	billingRepo := billing.NewRepository(mock)
	billingSvc := billing.NewService(mock, billingRepo, alloc, nil, logger, 0)

	handler := router.New(&router.Config{
		Logger:               logger,
		PatientsHandler:      patients.NewHandler(patients.NewRepository(mock, alloc, 0), logger),
		SchedulingHandler:    scheduling.NewHandler(schedulingSvc, logger),
		ConsultationsHandler: consultations.NewHandler(consultSvc, rxSvc, logger),
		PrescriptionsHandler: prescriptions.NewHandler(rxSvc, logger),
		BillingHandler:       billing.NewHandler(billingSvc, logger),
		ClinicHandler:        clinic.NewHandler(clinic.NewRepository(mock), logger),
		AuthSecret:           secret,
	})
	return handler, mock
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       "user-1",
		"role":      "doctor",
		"clinic_id": clinicID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestVisitLifecycleEndToEnd(t *testing.T) {
	handler, mock := newStack(t)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	dt := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	now := time.Now().UTC()

	// Book.
	mock.ExpectQuery("INSERT INTO appointments").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	var appt scheduling.Appointment
	rec := doJSON(t, handler, http.MethodPost, "/appointments", map[string]any{
		"patient_id": patientID,
		"doctor_id":  doctorID,
		"date":       "2026-08-29",
		"time":       "10:30",
		"type":       "consultation",
	}, &appt)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, scheduling.StatusScheduled, appt.Status)

	apptID := appt.ID
	checkedIn := now
	apptRow := func(status string) *pgxmock.Rows {
		return pgxmock.NewRows([]string{
			"id", "clinic_id", "patient_id", "doctor_id", "appointment_date", "appointment_time",
			"appointment_datetime", "appointment_type", "reason_for_visit", "status",
			"checked_in_at", "created_at",
		}).AddRow(apptID, clinicID, patientID, doctorID, day, "10:30",
			dt, (*string)(nil), (*string)(nil), status, &checkedIn, now)
	}

	// Check in: status flip, queue position allocation and queue insert share
	// one transaction.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").WillReturnRows(apptRow(scheduling.StatusCheckedIn))
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO patient_queue").
		WillReturnRows(pgxmock.NewRows([]string{"check_in_time"}).AddRow(now))
	mock.ExpectCommit()

	var checkInResp scheduling.CheckInResponse
	rec = doJSON(t, handler, http.MethodPut, "/appointments/"+apptID+"/check-in", nil, &checkInResp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, checkInResp.QueueEntry.Position)
	require.Equal(t, scheduling.QueueWaiting, checkInResp.QueueEntry.Status)

	// Start consultation.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM appointments").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(scheduling.StatusCheckedIn))
	mock.ExpectQuery("INSERT INTO consultations").
		WillReturnRows(pgxmock.NewRows([]string{"started_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("UPDATE patient_queue").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	var consult consultations.Consultation
	rec = doJSON(t, handler, http.MethodPost, "/consultations", map[string]any{
		"appointment_id": apptID,
	}, &consult)
	require.Equal(t, http.StatusCreated, rec.Code)
	consultID := consult.ID

	// Record findings; only supplied fields change. The merge reads the row
	// under a lock inside its own transaction.
	mock.ExpectBegin()
	mock.ExpectQuery("(?s)SELECT (.+) FROM consultations").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "started_at", "chief_complaint",
			"history_of_present_illness", "past_medical_history", "physical_examination",
			"assessment", "plan", "vitals", "doctor_notes", "updated_at",
		}).AddRow(consultID, apptID, now, (*string)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), now))
	mock.ExpectQuery("UPDATE consultations").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	rec = doJSON(t, handler, http.MethodPut, "/consultations/"+consultID, map[string]any{
		"chief_complaint": "fever",
		"assessment":      "viral infection",
	}, &consult)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "fever", consult.ChiefComplaint)

	// Issue prescription.
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO prescriptions").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("INSERT INTO prescription_medicines").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	var rx prescriptions.Prescription
	rec = doJSON(t, handler, http.MethodPost, "/consultations/prescription", map[string]any{
		"consultation_id": consultID,
		"patient_id":      patientID,
		"doctor_id":       doctorID,
		"medicines": []map[string]any{
			{"drug_name": "Paracetamol", "strength": "650mg", "frequency": "1-1-1", "duration_days": 3},
		},
	}, &rx)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "RX-000001", rx.Number)

	// Complete the visit: appointment and queue entry close together.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE patient_queue").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rec = doJSON(t, handler, http.MethodPost, "/consultations/complete", map[string]any{
		"appointment_id": apptID,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Invoice the visit.
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO invoices").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("INSERT INTO invoice_items").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	var inv billing.Invoice
	rec = doJSON(t, handler, http.MethodPost, "/billing", map[string]any{
		"patient_id":     patientID,
		"appointment_id": apptID,
		"discount_cents": 5000,
		"items": []map[string]any{
			{"description": "Consultation", "quantity": 1, "unit_price_cents": 50000},
		},
	}, &inv)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "INV-000001", inv.Number)
	require.Equal(t, int64(45000), inv.NetCents)

	require.NoError(t, mock.ExpectationsWereMet())
}
