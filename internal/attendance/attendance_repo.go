package attendance

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	// Upsert writes a by (StudentID, Date) and overwrites it with the stored record.
	Upsert(ctx context.Context, a *Attendance) error
	FindByDate(ctx context.Context, date string) ([]Attendance, error)
	FindAll(ctx context.Context) ([]Attendance, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db.Statement.ConnPool = r.tx
	}
	return db
}

func onDate(date string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("date = ?", date)
	}
}

const upsertAttendanceSQL = `
INSERT INTO attendances (id, student_id, date, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (student_id, date) DO UPDATE
SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, date, status, created_at, updated_at
`

func (r *repository) Upsert(ctx context.Context, a *Attendance) error {
	return r.conn(ctx).
		Raw(upsertAttendanceSQL, a.ID, a.StudentID, a.Date, a.Status, a.CreatedAt, a.UpdatedAt).
		Scan(a).Error
}

func (r *repository) FindByDate(ctx context.Context, date string) ([]Attendance, error) {
	var rows []Attendance
	err := r.conn(ctx).
		Scopes(onDate(date)).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAll(ctx context.Context) ([]Attendance, error) {
	var rows []Attendance
	err := r.conn(ctx).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
