package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go-attendance/internal/bootstrap"
	"go-attendance/internal/events"
	"go-attendance/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeAttendanceEvents writes every attendance/roster event to the audit log.
// Offsets are committed only after the entry is written; undecodable messages are skipped.
func ConsumeAttendanceEvents(
	ctx context.Context,
	reader MessageReader,
	audit bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.attendance_audit")
	log.Info("attendance audit consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("attendance audit consumer stopped")
				return
			}
			log.Error("fetch attendance message failed", zap.Error(err))
			continue
		}

		if err := handleMessage(ctx, msg, audit); err != nil {
			log.Warn("skipping undecodable attendance message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit attendance message failed", zap.Error(err))
			continue
		}
	}
}

func handleMessage(ctx context.Context, msg kafkago.Message, audit bootstrap.AuditLogger) error {
	for _, h := range msg.Headers {
		if h.Key == "request_id" {
			ctx = contextutil.WithRequestID(ctx, string(h.Value))
		}
	}

	var env events.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch env.EventType {
	case events.EventAttendanceMarked:
		var ev events.AttendanceMarkedEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		audit.Log(ctx, bootstrap.AuditLog{
			Action:  "ATTENDANCE_MARKED",
			Message: fmt.Sprintf("%s marked %s on %s", ev.StudentID, ev.Status, ev.Date),
			Meta: map[string]any{
				"record_id":   ev.RecordID,
				"student_id":  ev.StudentID,
				"date":        ev.Date,
				"status":      ev.Status,
				"occurred_at": ev.OccurredAt,
			},
		})
	case events.EventStudentRegistered:
		var ev events.StudentRegisteredEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		audit.Log(ctx, bootstrap.AuditLog{
			Action:  "STUDENT_REGISTERED",
			Message: fmt.Sprintf("%s registered in %s", ev.StudentID, ev.Class),
			Meta: map[string]any{
				"student_id":  ev.StudentID,
				"name":        ev.Name,
				"grade":       ev.Grade,
				"class":       ev.Class,
				"occurred_at": ev.OccurredAt,
			},
		})
	default:
		return fmt.Errorf("unknown event type %q", env.EventType)
	}

	return nil
}
