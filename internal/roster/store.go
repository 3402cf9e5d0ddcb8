package roster

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrSaveFailed    = errors.New("failed to save attendance")
	ErrUnknownStatus = errors.New("status must be present, absent or late")
	ErrNoDate        = errors.New("no date selected")
)

var markable = map[string]bool{"present": true, "absent": true, "late": true}

// Store caches the student list and the attendance of one selected date.
// Pending marks are keyed by studentId and hold lower-case statuses.
type Store struct {
	mu         sync.RWMutex
	api        API
	students   []Student
	date       string
	attendance []Record
	pending    map[string]string
	logger     *zap.Logger
}

func NewStore(api API, logger ...*zap.Logger) *Store {
	l := zap.L().Named("roster.store")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("roster.store")
	}
	return &Store{
		api:     api,
		pending: map[string]string{},
		logger:  l,
	}
}

func (s *Store) LoadStudents(ctx context.Context) error {
	students, err := s.api.ListStudents(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.students = students
	s.mu.Unlock()
	return nil
}

// AddStudent registers a student and prepends the server copy, keeping newest first.
func (s *Store) AddStudent(ctx context.Context, in NewStudent) (Student, error) {
	created, err := s.api.CreateStudent(ctx, in)
	if err != nil {
		return Student{}, err
	}

	s.mu.Lock()
	s.students = append([]Student{created}, s.students...)
	s.mu.Unlock()
	return created, nil
}

// SelectDate drops every pending edit and rebuilds marks from the server's records for date.
func (s *Store) SelectDate(ctx context.Context, date string) error {
	s.mu.Lock()
	s.date = date
	s.attendance = nil
	s.pending = map[string]string{}
	s.mu.Unlock()

	records, err := s.api.ListAttendance(ctx, date)
	if err != nil {
		return err
	}

	pending := make(map[string]string, len(records))
	for _, r := range records {
		pending[r.StudentID] = strings.ToLower(r.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.date != date {
		// another SelectDate won the race
		return nil
	}
	s.attendance = records
	s.pending = pending
	return nil
}

func (s *Store) Date() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date
}

func (s *Store) Mark(studentID, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if !markable[status] {
		return ErrUnknownStatus
	}

	s.mu.Lock()
	s.pending[studentID] = status
	s.mu.Unlock()
	return nil
}

// Status returns the mark for a student, or "" when unset.
func (s *Store) Status(studentID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[studentID]
}

// SaveAll upserts every pending mark one at a time and stops at the first failure.
// It returns how many were saved; earlier saves are kept.
func (s *Store) SaveAll(ctx context.Context) (int, error) {
	s.mu.RLock()
	date := s.date
	ids := make([]string, 0, len(s.pending))
	marks := make(map[string]string, len(s.pending))
	for id, status := range s.pending {
		ids = append(ids, id)
		marks[id] = status
	}
	s.mu.RUnlock()

	if date == "" {
		return 0, ErrNoDate
	}
	sort.Strings(ids)

	title := cases.Title(language.English)
	saved := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		rec, err := s.api.UpsertAttendance(ctx, id, date, title.String(marks[id]))
		if err != nil {
			s.logger.Warn("save attendance stopped",
				zap.String("student_id", id),
				zap.String("date", date),
				zap.Int("saved", saved),
				zap.Error(err),
			)
			return saved, ErrSaveFailed
		}
		s.patch(rec)
		saved++
	}

	s.logger.Info("attendance saved", zap.String("date", date), zap.Int("saved", saved))
	return saved, nil
}

// patch replaces the record with the same (studentId, date) or appends it.
func (s *Store) patch(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Date != s.date {
		return
	}
	for i, r := range s.attendance {
		if r.StudentID == rec.StudentID && r.Date == rec.Date {
			s.attendance[i] = rec
			return
		}
	}
	s.attendance = append(s.attendance, rec)
}

func (s *Store) Attendance() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.attendance...)
}

func (s *Store) Students() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Student(nil), s.students...)
}

// Roster filters the cached students by name/id substring and exact grade.
func (s *Store) Roster(f Filter) []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(f)
}

func (s *Store) filter(f Filter) []Student {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	grade := strings.TrimSpace(f.Grade)

	out := make([]Student, 0, len(s.students))
	for _, st := range s.students {
		if grade != "" && st.Grade != grade {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(st.Name), q) &&
			!strings.Contains(strings.ToLower(st.StudentID), q) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func (s *Store) Stats(f Filter) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:    len(s.students),
		Filtered: len(s.filter(f)),
	}
	for _, status := range s.pending {
		switch status {
		case "present":
			st.Present++
		case "absent":
			st.Absent++
		case "late":
			st.Late++
		}
	}
	return st
}
