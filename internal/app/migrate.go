package app

import (
	"fmt"

	"go-attendance/internal/attendance"
	"go-attendance/internal/messaging/kafka"
	"go-attendance/internal/student"

	"gorm.io/gorm"
)

// Migrate creates the student, attendance and outbox tables when missing.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&student.Student{}, &attendance.Attendance{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(kafka.OutboxSchema).Error; err != nil {
		return fmt.Errorf("create outbox table: %w", err)
	}
	return nil
}
