package roster

import (
	"context"
	"time"
)

type Student struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Class     string    `json:"class"`
	CreatedAt time.Time `json:"createdAt"`
}

type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NewStudent struct {
	StudentID string `json:"studentId,omitempty"`
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	Class     string `json:"class,omitempty"`
	Section   string `json:"section,omitempty"`
}

// API is the server surface the Store talks to.
type API interface {
	ListStudents(ctx context.Context) ([]Student, error)
	CreateStudent(ctx context.Context, in NewStudent) (Student, error)
	ListAttendance(ctx context.Context, date string) ([]Record, error)
	UpsertAttendance(ctx context.Context, studentID, date, status string) (Record, error)
}

type Filter struct {
	Query string
	Grade string
}

type Stats struct {
	Total    int
	Filtered int
	Present  int
	Absent   int
	Late     int
}
