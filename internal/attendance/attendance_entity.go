package attendance

import "time"

// Attendance is one mark for a student on a calendar day; (student_id, date) is unique.
type Attendance struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	StudentID string    `gorm:"column:student_id;type:varchar(50);not null;uniqueIndex:uq_attendance_student_date,priority:1" bson:"studentId"`
	Date      string    `gorm:"column:date;type:varchar(10);not null;uniqueIndex:uq_attendance_student_date,priority:2;index:idx_attendances_date" bson:"date"`
	Status    Status    `gorm:"column:status;type:varchar(10);not null" bson:"status"`
	CreatedAt time.Time `gorm:"column:created_at;not null" bson:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" bson:"updatedAt"`
}

func (Attendance) TableName() string {
	return "attendances"
}
