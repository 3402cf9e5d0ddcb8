package attendance_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"go-attendance/internal/attendance"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newGormMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{SkipDefaultTransaction: true})
	assert.NoError(t, err)
	return gdb, mock
}

var attendanceColumns = []string{"id", "student_id", "date", "status", "created_at", "updated_at"}

func TestRepository_UpsertReturnsStoredRecord(t *testing.T) {
	gdb, mock := newGormMock(t)
	repo := attendance.NewRepository(gdb)

	firstCreated := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	// created_at is only written by the INSERT half; a conflict touches status and updated_at alone.
	upsertPattern := `INSERT INTO attendances \(id, student_id, date, status, created_at, updated_at\)\s+` +
		`VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)\s+` +
		`ON CONFLICT \(student_id, date\) DO UPDATE\s+` +
		`SET status = EXCLUDED\.status, updated_at = EXCLUDED\.updated_at\s+` +
		`RETURNING id, student_id, date, status, created_at, updated_at`

	mock.ExpectQuery(upsertPattern).
		WithArgs("new-id", "STU001", "2024-05-01", "Late", now, now).
		WillReturnRows(sqlmock.NewRows(attendanceColumns).
			AddRow("old-id", "STU001", "2024-05-01", "Late", firstCreated, now))

	rec := &attendance.Attendance{
		ID:        "new-id",
		StudentID: "STU001",
		Date:      "2024-05-01",
		Status:    attendance.StatusLate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := repo.Upsert(context.Background(), rec)

	assert.NoError(t, err)
	assert.Equal(t, "old-id", rec.ID)
	assert.Equal(t, attendance.StatusLate, rec.Status)
	assert.True(t, firstCreated.Equal(rec.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertRunsInsideGivenTx(t *testing.T) {
	gdb, mock := newGormMock(t)
	sqlDB, err := gdb.DB()
	assert.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date) DO UPDATE")).
		WillReturnRows(sqlmock.NewRows(attendanceColumns).
			AddRow("id-1", "STU001", "2024-05-01", "Present", now, now))
	mock.ExpectCommit()

	tx, err := sqlDB.Begin()
	assert.NoError(t, err)

	rec := &attendance.Attendance{ID: "id-1", StudentID: "STU001", Date: "2024-05-01", Status: attendance.StatusPresent, CreatedAt: now, UpdatedAt: now}
	assert.NoError(t, attendance.NewRepository(gdb).WithTx(tx).Upsert(context.Background(), rec))
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByDate(t *testing.T) {
	gdb, mock := newGormMock(t)
	repo := attendance.NewRepository(gdb)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "attendances" WHERE date = $1 ORDER BY created_at ASC`)).
		WithArgs("2024-05-01").
		WillReturnRows(sqlmock.NewRows(attendanceColumns).
			AddRow("a1", "STU001", "2024-05-01", "Present", now, now).
			AddRow("a2", "STU002", "2024-05-01", "Absent", now, now))

	rows, err := repo.FindByDate(context.Background(), "2024-05-01")

	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, attendance.StatusAbsent, rows[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindAll(t *testing.T) {
	gdb, mock := newGormMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "attendances" ORDER BY created_at ASC`)).
		WillReturnRows(sqlmock.NewRows(attendanceColumns))

	rows, err := attendance.NewRepository(gdb).FindAll(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
