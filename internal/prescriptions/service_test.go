package prescriptions

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/require"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/sequence"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

const (
	testClinicID  = "7f9f5ab0-0000-4000-8000-000000000001"
	testConsultID = "7f9f5ab0-0000-4000-8000-0000000000c1"
	testPatientID = "7f9f5ab0-0000-4000-8000-0000000000a1"
	testDoctorID  = "7f9f5ab0-0000-4000-8000-0000000000d0"
)

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewRepository(mock)
	alloc := sequence.NewPostgresAllocator(mock)
	svc := NewService(mock, repo, alloc, nil, logging.New("error"), 0)
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC) }
	return svc, mock
}

func validRequest() *IssueRequest {
	return &IssueRequest{
		ClinicID:       testClinicID,
		ConsultationID: testConsultID,
		PatientID:      testPatientID,
		DoctorID:       testDoctorID,
		Medicines: []Medicine{
			{DrugName: "Amoxicillin", Strength: "500mg", Form: "capsule", Frequency: "1-0-1", DurationDays: 5},
			{DrugName: "Paracetamol", Strength: "650mg", Frequency: "as needed", DurationDays: 3},
		},
		Instructions: "take after meals",
	}
}

func TestIssueHappyPath(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WithArgs(testClinicID, sequence.NamePrescription, "").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO prescriptions").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))
	mock.ExpectExec("INSERT INTO prescription_medicines").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO prescription_medicines").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	p, err := svc.Issue(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "RX-000007", p.Number)
	require.Len(t, p.Medicines, 2)
	require.Equal(t, time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC), p.Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A second prescription for the same consultation trips the unique index and
// must come back as a conflict, with the whole transaction rolled back.
func TestIssueDuplicateConsultationIsConflict(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WithArgs(testClinicID, sequence.NamePrescription, "").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(8)))
	mock.ExpectQuery("INSERT INTO prescriptions").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "prescriptions_consultation_id_key"})
	mock.ExpectRollback()

	_, err := svc.Issue(context.Background(), validRequest())
	require.Equal(t, faults.KindConflict, faults.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

// A medicine line failure must abort the header too; a prescription is never
// stored half-written.
func TestIssueRollsBackOnMedicineFailure(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(9)))
	mock.ExpectQuery("INSERT INTO prescriptions").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))
	mock.ExpectExec("INSERT INTO prescription_medicines").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, err := svc.Issue(context.Background(), validRequest())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "transaction must roll back, not commit")
}

func TestIssueValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*IssueRequest)
	}{
		{"missing consultation", func(r *IssueRequest) { r.ConsultationID = "" }},
		{"missing patient", func(r *IssueRequest) { r.PatientID = "" }},
		{"missing doctor", func(r *IssueRequest) { r.DoctorID = "" }},
		{"no medicines", func(r *IssueRequest) { r.Medicines = nil }},
		{"blank drug name", func(r *IssueRequest) { r.Medicines[0].DrugName = "  " }},
		{"negative duration", func(r *IssueRequest) { r.Medicines[1].DurationDays = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.Issue(context.Background(), req)
			require.Equal(t, faults.KindValidation, faults.KindOf(err))
		})
	}
}

func TestGetByConsultationMissingIsNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("(?s)SELECT (.+) FROM prescriptions").
		WithArgs(testConsultID, testClinicID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByConsultation(context.Background(), testClinicID, testConsultID)
	require.Equal(t, faults.KindNotFound, faults.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
