package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/require"

	"github.com/lifecarehq/clinicflow/internal/faults"
	"github.com/lifecarehq/clinicflow/internal/sequence"
	"github.com/lifecarehq/clinicflow/pkg/logging"
)

const (
	testClinicID = "7f9f5ab0-0000-4000-8000-000000000001"
	testApptID   = "7f9f5ab0-0000-4000-8000-00000000000a"
	testDoctorID = "7f9f5ab0-0000-4000-8000-0000000000d0"
	testPatient  = "7f9f5ab0-0000-4000-8000-0000000000p1"
)

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewRepository(mock)
	alloc := sequence.NewPostgresAllocator(mock)
	svc := NewService(mock, repo, alloc, nil, logging.New("error"), 0)
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }
	return svc, mock
}

func appointmentRows(status string) *pgxmock.Rows {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	dt := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	checkedIn := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "clinic_id", "patient_id", "doctor_id", "appointment_date", "appointment_time",
		"appointment_datetime", "appointment_type", "reason_for_visit", "status",
		"checked_in_at", "created_at",
	}).AddRow(
		testApptID, testClinicID, testPatient, testDoctorID, day, "10:30",
		dt, strPtr("consultation"), strPtr("fever"), status,
		&checkedIn, day,
	)
}

func strPtr(s string) *string { return &s }

func TestCheckInHappyPath(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(testApptID, testClinicID, StatusCheckedIn, StatusScheduled).
		WillReturnRows(appointmentRows(StatusCheckedIn))
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WithArgs(testClinicID, sequence.NameQueue, testDoctorID+":2026-08-29").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(4)))
	mock.ExpectQuery("INSERT INTO patient_queue").
		WithArgs(pgxmock.AnyArg(), testClinicID, testDoctorID, testPatient, testApptID,
			time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), 4, QueueWaiting).
		WillReturnRows(pgxmock.NewRows([]string{"check_in_time"}).AddRow(time.Now().UTC()))
	mock.ExpectCommit()

	appt, entry, err := svc.CheckIn(context.Background(), testClinicID, testApptID)
	require.NoError(t, err)
	require.Equal(t, StatusCheckedIn, appt.Status)
	require.Equal(t, 4, entry.Position)
	require.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), entry.QueueDate)
	require.Equal(t, QueueWaiting, entry.Status)
	require.Equal(t, testApptID, entry.AppointmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInAlreadyCheckedInIsConflict(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(testApptID, testClinicID, StatusCheckedIn, StatusScheduled).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs(testApptID, testClinicID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusCheckedIn))
	mock.ExpectRollback()

	_, _, err := svc.CheckIn(context.Background(), testClinicID, testApptID)
	require.Equal(t, faults.KindConflict, faults.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckInMissingAppointmentIsNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(testApptID, testClinicID, StatusCheckedIn, StatusScheduled).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT status FROM appointments").
		WithArgs(testApptID, testClinicID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := svc.CheckIn(context.Background(), testClinicID, testApptID)
	require.Equal(t, faults.KindNotFound, faults.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

// If the queue insert fails after the status transition, the whole check-in
// rolls back; the appointment must not stay checked_in with no queue entry.
func TestCheckInRollsBackOnQueueInsertFailure(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(testApptID, testClinicID, StatusCheckedIn, StatusScheduled).
		WillReturnRows(appointmentRows(StatusCheckedIn))
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WithArgs(testClinicID, sequence.NameQueue, testDoctorID+":2026-08-29").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO patient_queue").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := svc.CheckIn(context.Background(), testClinicID, testApptID)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "transaction must roll back, not commit")
}

func TestCheckInAllocatorFailureRollsBack(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(testApptID, testClinicID, StatusCheckedIn, StatusScheduled).
		WillReturnRows(appointmentRows(StatusCheckedIn))
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := svc.CheckIn(context.Background(), testClinicID, testApptID)
	require.Equal(t, faults.KindTransient, faults.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

// The allocator scope and the stored queue_date must name the same calendar
// day even right before midnight; a database-side CURRENT_DATE in another
// timezone would collide with the previous day's positions.
func TestCheckInQueueDateMatchesAllocatorDay(t *testing.T) {
	svc, mock := newTestService(t)
	svc.now = func() time.Time { return time.Date(2026, 8, 29, 23, 59, 30, 0, time.UTC) }

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(testApptID, testClinicID, StatusCheckedIn, StatusScheduled).
		WillReturnRows(appointmentRows(StatusCheckedIn))
	mock.ExpectQuery("INSERT INTO clinic_sequences").
		WithArgs(testClinicID, sequence.NameQueue, testDoctorID+":2026-08-29").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO patient_queue").
		WithArgs(pgxmock.AnyArg(), testClinicID, testDoctorID, testPatient, testApptID,
			time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), 1, QueueWaiting).
		WillReturnRows(pgxmock.NewRows([]string{"check_in_time"}).AddRow(time.Now().UTC()))
	mock.ExpectCommit()

	_, entry, err := svc.CheckIn(context.Background(), testClinicID, testApptID)
	require.NoError(t, err)
	require.Equal(t, "2026-08-29", entry.QueueDate.Format("2006-01-02"))
	require.NoError(t, mock.ExpectationsWereMet())
}

// GetQueue reads by the stored queue_date, not by casting check_in_time in
// the session timezone.
func TestGetQueueFiltersByQueueDate(t *testing.T) {
	svc, mock := newTestService(t)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	checkIn := time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC)
	mock.ExpectQuery("(?s)SELECT (.+) FROM patient_queue\\s+WHERE clinic_id = \\$1 AND queue_date = \\$2").
		WithArgs(testClinicID, day, testDoctorID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "clinic_id", "doctor_id", "patient_id", "appointment_id",
			"queue_date", "queue_position", "check_in_time", "status",
		}).AddRow(
			"q-1", testClinicID, testDoctorID, testPatient, testApptID,
			day, 1, checkIn, QueueWaiting,
		))

	entries, err := svc.GetQueue(context.Background(), testClinicID, testDoctorID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, day, entries[0].QueueDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  CreateAppointmentRequest
	}{
		{"missing patient", CreateAppointmentRequest{ClinicID: testClinicID, DoctorID: testDoctorID, Date: "2026-08-29", Time: "10:30"}},
		{"missing doctor", CreateAppointmentRequest{ClinicID: testClinicID, PatientID: testPatient, Date: "2026-08-29", Time: "10:30"}},
		{"bad date", CreateAppointmentRequest{ClinicID: testClinicID, PatientID: testPatient, DoctorID: testDoctorID, Date: "29/08/2026", Time: "10:30"}},
		{"bad time", CreateAppointmentRequest{ClinicID: testClinicID, PatientID: testPatient, DoctorID: testDoctorID, Date: "2026-08-29", Time: "10:30pm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &tt.req)
			require.Equal(t, faults.KindValidation, faults.KindOf(err))
		})
	}
}

func TestCreateCombinesDatetime(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), testClinicID, testPatient, testDoctorID,
			time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), "14:45",
			time.Date(2026, 8, 29, 14, 45, 0, 0, time.UTC), "follow_up", "review", StatusScheduled).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	appt, err := svc.Create(context.Background(), &CreateAppointmentRequest{
		ClinicID:  testClinicID,
		PatientID: testPatient,
		DoctorID:  testDoctorID,
		Date:      "2026-08-29",
		Time:      "14:45",
		Type:      "follow_up",
		Reason:    "review",
	})
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, appt.Status)
	require.Equal(t, time.Date(2026, 8, 29, 14, 45, 0, 0, time.UTC), appt.Datetime)
	require.NoError(t, mock.ExpectationsWereMet())
}
