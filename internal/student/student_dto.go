package student

import "time"

// CreateStudentRequest takes either a full class ("10-A") or a section to combine with the grade.
type CreateStudentRequest struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name" binding:"required"`
	Grade     string `json:"grade" binding:"required"`
	Class     string `json:"class"`
	Section   string `json:"section"`
}

type StudentResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	Class     string    `json:"class"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ImportRowError struct {
	Row       int    `json:"row"`
	StudentID string `json:"studentId,omitempty"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Errors   []ImportRowError `json:"errors"`
}
