package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	attendanceerrors "go-attendance/internal/attendance/errors"
	"go-attendance/internal/events"
	"go-attendance/internal/messaging/kafka"
	"go-attendance/internal/shared/apperror"
	"go-attendance/internal/shared/contextutil"
	"go-attendance/internal/shared/dbtx"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	AttendanceByDateKeyPrefix = "attendance:date:"
	AttendanceAllKey          = AttendanceByDateKeyPrefix + "all"
	// AttendanceCacheGenKey is bumped on every write; list keys embed its value.
	AttendanceCacheGenKey = "attendance:gen"

	attendanceCacheTTL = 5 * time.Minute
	defaultBatchLimit  = 4
	dateLayout         = "2006-01-02"
)

// GetAttendanceListKey returns the cache key for one date, or for the unfiltered
// list when date is empty, at cache generation gen.
func GetAttendanceListKey(date string, gen int64) string {
	base := AttendanceAllKey
	if date != "" {
		base = AttendanceByDateKeyPrefix + date
	}
	return base + ":v" + strconv.FormatInt(gen, 10)
}

// StudentChecker reports whether a student is registered.
type StudentChecker interface {
	Exists(ctx context.Context, studentID string) (bool, error)
}

type Options struct {
	// Students enables the referential check on upsert. Nil accepts any studentId.
	Students   StudentChecker
	BatchLimit int
	// Topic is where attendance events go. Empty means events.AttendanceTopic.
	Topic  string
	Logger *zap.Logger
}

type Service interface {
	Upsert(ctx context.Context, req UpsertAttendanceRequest) (AttendanceResponse, error)
	List(ctx context.Context, date string) ([]AttendanceResponse, error)
	UpsertBatch(ctx context.Context, req BatchAttendanceRequest) (BatchAttendanceResponse, error)
}

type service struct {
	tx         dbtx.Runner
	repo       Repository
	outbox     kafka.OutboxRepository
	rdb        *redis.Client
	sf         *singleflight.Group
	students   StudentChecker
	batchLimit int
	topic      string
	logger     *zap.Logger
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

	l := zap.L().Named("attendance.service")
	if o.Logger != nil {
		l = o.Logger.Named("attendance.service")
	}
	limit := o.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	topic := o.Topic
	if topic == "" {
		topic = events.AttendanceTopic
	}

	return &service{
		tx:         tx,
		repo:       repo,
		outbox:     outboxRepo,
		rdb:        rdb,
		sf:         &singleflight.Group{},
		students:   o.Students,
		batchLimit: limit,
		topic:      topic,
		logger:     l,
	}
}

func (s *service) Upsert(ctx context.Context, req UpsertAttendanceRequest) (AttendanceResponse, error) {
	resp, err := s.upsert(ctx, req)
	if err != nil {
		return AttendanceResponse{}, err
	}
	s.invalidate(ctx)
	return resp, nil
}

func (s *service) upsert(ctx context.Context, req UpsertAttendanceRequest) (AttendanceResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	studentID := strings.TrimSpace(req.StudentID)
	date := strings.TrimSpace(req.Date)

	s.logger.Debug("upsert attendance requested",
		zap.String("request_id", rid),
		zap.String("student_id", studentID),
		zap.String("date", date),
		zap.String("status", req.Status),
	)

	if studentID == "" {
		return AttendanceResponse{}, apperror.RequiredField("Student Id")
	}
	if date == "" {
		return AttendanceResponse{}, apperror.RequiredField("Date")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidDate
	}
	status, ok := ParseStatus(req.Status)
	if !ok {
		return AttendanceResponse{}, attendanceerrors.ErrInvalidStatus
	}

	if s.students != nil {
		exists, err := s.students.Exists(ctx, studentID)
		if err != nil {
			s.logger.Error("upsert attendance student lookup failed", zap.String("request_id", rid), zap.Error(err))
			return AttendanceResponse{}, mapRepositoryError(err)
		}
		if !exists {
			s.logger.Warn("upsert attendance for unknown student", zap.String("student_id", studentID))
			return AttendanceResponse{}, attendanceerrors.ErrStudentNotFound
		}
	}

	now := time.Now().UTC()
	record := &Attendance{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, record); err != nil {
			s.logger.Error("upsert attendance persist failed", zap.String("request_id", rid), zap.Error(err))
			return err
		}

		if s.outbox == nil {
			return nil
		}
		event, err := kafka.NewOutboxEvent(s.topic, "attendance", record.StudentID+":"+record.Date, events.EventAttendanceMarked, rid,
			events.AttendanceMarkedEvent{
				EventType:  events.EventAttendanceMarked,
				RequestID:  rid,
				RecordID:   record.ID,
				StudentID:  record.StudentID,
				Date:       record.Date,
				Status:     record.Status.String(),
				OccurredAt: now,
			})
		if err != nil {
			return err
		}
		if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
			s.logger.Error("upsert attendance outbox persist failed",
				zap.String("record_id", record.ID),
				zap.Error(err),
			)
			return err
		}
		return nil
	})
	if err != nil {
		return AttendanceResponse{}, mapRepositoryError(err)
	}

	s.logger.Info("upsert attendance success",
		zap.String("request_id", rid),
		zap.String("record_id", record.ID),
		zap.String("status", record.Status.String()),
	)
	return mapToResponse(*record), nil
}

func (s *service) List(ctx context.Context, date string) ([]AttendanceResponse, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			// Stored dates are always well-formed, so nothing can match.
			return []AttendanceResponse{}, nil
		}
	}
	gen, cacheable := s.cacheGeneration(ctx)
	cacheKey := GetAttendanceListKey(date, gen)

	if cacheable {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var resp []AttendanceResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		var (
			rows []Attendance
			err  error
		)
		if date == "" {
			rows, err = s.repo.FindAll(ctx)
		} else {
			rows, err = s.repo.FindByDate(ctx, date)
		}
		if err != nil {
			s.logger.Error("list attendance failed", zap.String("date", date), zap.Error(err))
			return nil, mapRepositoryError(err)
		}

		resp := mapToListResponse(rows)
		// A write that lands meanwhile bumps the generation, so this key is never read again.
		if cacheable {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, attendanceCacheTTL)
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]AttendanceResponse), nil
}

// UpsertBatch writes each entry independently; one failing entry does not stop the others.
func (s *service) UpsertBatch(ctx context.Context, req BatchAttendanceRequest) (BatchAttendanceResponse, error) {
	entries := dedupeEntries(req.Entries)
	results := make([]BatchItemResult, len(entries))

	var g errgroup.Group
	g.SetLimit(s.batchLimit)
	for i, e := range entries {
		g.Go(func() error {
			resp, err := s.upsert(ctx, UpsertAttendanceRequest{
				StudentID: e.StudentID,
				Date:      req.Date,
				Status:    e.Status,
			})
			if err != nil {
				httpErr := apperror.ToHTTP(err)
				results[i] = BatchItemResult{
					StudentID: e.StudentID,
					Error:     httpErr.Message,
					Code:      httpErr.Code,
				}
				return nil
			}
			results[i] = BatchItemResult{StudentID: e.StudentID, Success: true, Data: &resp}
			return nil
		})
	}
	_ = g.Wait()

	var summary BatchSummary
	for _, r := range results {
		if r.Success {
			summary.Saved++
		} else {
			summary.Failed++
		}
	}
	if summary.Saved > 0 {
		s.invalidate(ctx)
	}

	s.logger.Info("batch attendance processed",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.String("date", req.Date),
		zap.Int("saved", summary.Saved),
		zap.Int("failed", summary.Failed),
	)
	return BatchAttendanceResponse{Results: results, Summary: summary}, nil
}

// dedupeEntries keeps the first position of each studentId and the last status given for it.
// Entries without a studentId are kept apart so each one fails on its own.
func dedupeEntries(in []BatchEntry) []BatchEntry {
	index := make(map[string]int, len(in))
	out := make([]BatchEntry, 0, len(in))
	for _, e := range in {
		e.StudentID = strings.TrimSpace(e.StudentID)
		if e.StudentID == "" {
			out = append(out, e)
			continue
		}
		if i, ok := index[e.StudentID]; ok {
			out[i] = e
			continue
		}
		index[e.StudentID] = len(out)
		out = append(out, e)
	}
	return out
}

// cacheGeneration reads the current list cache generation. A missing key is
// generation 0; any other redis failure disables caching for the call.
func (s *service) cacheGeneration(ctx context.Context) (int64, bool) {
	if s.rdb == nil {
		return 0, false
	}
	gen, err := s.rdb.Get(ctx, AttendanceCacheGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		s.logger.Warn("read attendance cache generation failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *service) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, AttendanceCacheGenKey).Err(); err != nil {
		s.logger.Error("failed to invalidate attendance cache",
			zap.Error(err),
			zap.String("key", AttendanceCacheGenKey),
		)
	}
}

func mapToResponse(a Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:        a.ID,
		StudentID: a.StudentID,
		Date:      a.Date,
		Status:    a.Status.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func mapToListResponse(rows []Attendance) []AttendanceResponse {
	res := make([]AttendanceResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res
}
