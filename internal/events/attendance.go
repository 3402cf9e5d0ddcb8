package events

import "time"

// AttendanceTopic carries every attendance and roster lifecycle event.
const AttendanceTopic = "school.attendance.v1"

const (
	EventAttendanceMarked  = "attendance_marked"
	EventStudentRegistered = "student_registered"
)

type AttendanceMarkedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	RecordID   string    `json:"record_id"`
	StudentID  string    `json:"student_id"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type StudentRegisteredEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	Grade      string    `json:"grade"`
	Class      string    `json:"class"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Envelope is decoded first so consumers can route on event_type.
type Envelope struct {
	EventType string `json:"event_type"`
}
