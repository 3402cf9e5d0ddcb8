package student

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"
	"time"

	"go-attendance/internal/events"
	"go-attendance/internal/messaging/kafka"
	"go-attendance/internal/shared/apperror"
	"go-attendance/internal/shared/contextutil"
	"go-attendance/internal/shared/dbtx"
	studenterrors "go-attendance/internal/student/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	StudentsAllKey  = "students:all"
	studentCacheTTL = 30 * time.Minute
)

type Service interface {
	Create(ctx context.Context, req CreateStudentRequest) (StudentResponse, error)
	GetAll(ctx context.Context) ([]StudentResponse, error)
	Exists(ctx context.Context, studentID string) (bool, error)
	Import(ctx context.Context, file io.Reader) (ImportResult, error)
}

type service struct {
	tx     dbtx.Runner
	repo   Repository
	outbox kafka.OutboxRepository
	rdb    *redis.Client
	sf     *singleflight.Group
	topic  string
	logger *zap.Logger
}

type Options struct {
	// Topic is where registration events go. Empty means events.AttendanceTopic.
	Topic  string
	Logger *zap.Logger
}

func NewService(tx dbtx.Runner, repo Repository, rdb *redis.Client, opts ...Options) Service {
	return NewServiceWithOutbox(tx, repo, nil, rdb, opts...)
}

func NewServiceWithOutbox(
	tx dbtx.Runner,
	repo Repository,
	outboxRepo kafka.OutboxRepository,
	rdb *redis.Client,
	opts ...Options,
) Service {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	l := zap.L().Named("student.service")
	if o.Logger != nil {
		l = o.Logger.Named("student.service")
	}
	topic := o.Topic
	if topic == "" {
		topic = events.AttendanceTopic
	}
	return &service{
		tx:     tx,
		repo:   repo,
		outbox: outboxRepo,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		topic:  topic,
		logger: l,
	}
}

// GenerateStudentID returns an id of the form STU-XXXX (upper-case hex).
func GenerateStudentID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "STU-" + strings.ToUpper(raw[:4])
}

func (s *service) Create(ctx context.Context, req CreateStudentRequest) (StudentResponse, error) {
	resp, err := s.create(ctx, req)
	if err != nil {
		return StudentResponse{}, err
	}
	s.invalidate(ctx)
	return resp, nil
}

func (s *service) create(ctx context.Context, req CreateStudentRequest) (StudentResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	name := strings.TrimSpace(req.Name)
	grade := strings.TrimSpace(req.Grade)
	class := strings.TrimSpace(req.Class)
	if name == "" {
		return StudentResponse{}, apperror.RequiredField("Name")
	}
	if grade == "" {
		return StudentResponse{}, apperror.RequiredField("Grade")
	}
	if class == "" {
		section := strings.TrimSpace(req.Section)
		if section == "" {
			return StudentResponse{}, studenterrors.ErrClassRequired
		}
		class = grade + "-" + section
	}

	studentID := strings.TrimSpace(req.StudentID)
	if studentID == "" {
		studentID = GenerateStudentID()
	}

	s.logger.Debug("create student requested",
		zap.String("request_id", rid),
		zap.String("student_id", studentID),
		zap.String("class", class),
	)

	now := time.Now().UTC()
	st := &Student{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Name:      name,
		Grade:     grade,
		Class:     class,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.WithTx(tx).Create(ctx, st); err != nil {
			s.logger.Warn("create student persist failed", zap.String("request_id", rid), zap.Error(err))
			return err
		}

		if s.outbox == nil {
			return nil
		}
		event, err := kafka.NewOutboxEvent(s.topic, "student", st.StudentID, events.EventStudentRegistered, rid,
			events.StudentRegisteredEvent{
				EventType:  events.EventStudentRegistered,
				RequestID:  rid,
				StudentID:  st.StudentID,
				Name:       st.Name,
				Grade:      st.Grade,
				Class:      st.Class,
				OccurredAt: now,
			})
		if err != nil {
			return err
		}
		return s.outbox.WithTx(tx).Create(ctx, event)
	})
	if err != nil {
		return StudentResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("create student success",
		zap.String("request_id", rid),
		zap.String("student_id", st.StudentID),
	)
	return mapToResponse(*st), nil
}

func (s *service) GetAll(ctx context.Context) ([]StudentResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, StudentsAllKey).Result(); err == nil {
			var resp []StudentResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(StudentsAllKey, func() (interface{}, error) {
		rows, err := s.repo.FindAll(ctx)
		if err != nil {
			s.logger.Error("get all students failed", zap.Error(err))
			return nil, mapRepositoryError(err)
		}

		resp := mapToListResponse(rows)
		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, StudentsAllKey, jsonData, studentCacheTTL)
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]StudentResponse), nil
}

func (s *service) Exists(ctx context.Context, studentID string) (bool, error) {
	ok, err := s.repo.ExistsByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		return false, mapRepositoryError(err)
	}
	return ok, nil
}

// Import registers every row of the first sheet (header skipped) with columns
// studentId | name | grade | class. Failing rows are reported and do not stop the import.
func (s *service) Import(ctx context.Context, file io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		s.logger.Warn("open roster workbook failed", zap.Error(err))
		return ImportResult{}, apperror.Wrap(err, studenterrors.ErrInvalidImportFile.Code,
			studenterrors.ErrInvalidImportFile.Message, studenterrors.ErrInvalidImportFile.HTTPStatus)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close roster workbook failed", zap.Error(err))
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return ImportResult{}, studenterrors.ErrInvalidImportFile
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return ImportResult{}, apperror.Wrap(err, studenterrors.ErrInvalidImportFile.Code,
			studenterrors.ErrInvalidImportFile.Message, studenterrors.ErrInvalidImportFile.HTTPStatus)
	}

	result := ImportResult{Errors: []ImportRowError{}}
	for i, row := range rows {
		if i == 0 || isBlankRow(row) {
			continue
		}

		req := CreateStudentRequest{
			StudentID: cell(row, 0),
			Name:      cell(row, 1),
			Grade:     cell(row, 2),
			Class:     cell(row, 3),
		}
		if _, err := s.create(ctx, req); err != nil {
			httpErr := apperror.ToHTTP(err)
			result.Errors = append(result.Errors, ImportRowError{
				Row:       i + 1,
				StudentID: req.StudentID,
				Error:     httpErr.Message,
				Code:      httpErr.Code,
			})
			continue
		}
		result.Imported++
	}

	if result.Imported > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info("roster import finished",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("sheet", sheetName),
		zap.Int("imported", result.Imported),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (s *service) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, StudentsAllKey).Err(); err != nil {
		s.logger.Error("failed to invalidate students cache",
			zap.Error(err),
			zap.String("key", StudentsAllKey),
		)
	}
}

func mapToResponse(st Student) StudentResponse {
	return StudentResponse{
		ID:        st.ID,
		StudentID: st.StudentID,
		Name:      st.Name,
		Grade:     st.Grade,
		Class:     st.Class,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func mapToListResponse(rows []Student) []StudentResponse {
	res := make([]StudentResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res
}
