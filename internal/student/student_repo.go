package student

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=student_repo.go -destination=mock/student_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, s *Student) error
	FindAll(ctx context.Context) ([]Student, error)
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
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

func (r *repository) Create(ctx context.Context, s *Student) error {
	return r.conn(ctx).Create(s).Error
}

// FindAll lists newest registrations first.
func (r *repository) FindAll(ctx context.Context) ([]Student, error) {
	var rows []Student
	err := r.conn(ctx).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	var n int64
	err := r.conn(ctx).
		Model(&Student{}).
		Where("student_id = ?", studentID).
		Count(&n).Error
	return n > 0, err
}
