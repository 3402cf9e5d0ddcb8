package attendance

import "time"

type UpsertAttendanceRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

type AttendanceResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entries are validated one by one so a bad entry never rejects the whole batch.
type BatchAttendanceRequest struct {
	Date    string       `json:"date" binding:"required"`
	Entries []BatchEntry `json:"entries" binding:"required,min=1"`
}

type BatchEntry struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

type BatchItemResult struct {
	StudentID string              `json:"studentId"`
	Success   bool                `json:"success"`
	Data      *AttendanceResponse `json:"data,omitempty"`
	Error     string              `json:"error,omitempty"`
	Code      string              `json:"code,omitempty"`
}

type BatchSummary struct {
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

type BatchAttendanceResponse struct {
	Results []BatchItemResult `json:"results"`
	Summary BatchSummary      `json:"summary"`
}
