package student

import "time"

type Student struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	StudentID string    `gorm:"column:student_id;type:varchar(50);not null;uniqueIndex:uq_students_student_id" bson:"studentId"`
	Name      string    `gorm:"column:name;type:varchar(150);not null" bson:"name"`
	Grade     string    `gorm:"column:grade;type:varchar(20);not null" bson:"grade"`
	Class     string    `gorm:"column:class_name;type:varchar(50);not null" bson:"class"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_students_created_at" bson:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" bson:"updatedAt"`
}

func (Student) TableName() string {
	return "students"
}
