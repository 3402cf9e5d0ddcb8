package attendance_test

import (
	"context"
	"testing"
	"time"

	"go-attendance/internal/attendance"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func attendanceDoc(id, studentID, date, status string, created, updated time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "studentId", Value: studentID},
		{Key: "date", Value: date},
		{Key: "status", Value: status},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: updated},
	}
}

func TestMongoRepository_Upsert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	created := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mt.Run("returns the document after update", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: attendanceDoc("rec-1", "STU001", "2024-05-01", "Late", created, updated)},
		})

		rec := &attendance.Attendance{ID: "new-id", StudentID: "STU001", Date: "2024-05-01", Status: attendance.StatusLate, CreatedAt: updated, UpdatedAt: updated}
		err := attendance.NewMongoRepository(mt.DB).Upsert(context.Background(), rec)

		assert.NoError(t, err)
		assert.Equal(t, "rec-1", rec.ID)
		assert.Equal(t, attendance.StatusLate, rec.Status)
		assert.True(t, created.Equal(rec.CreatedAt))
	})

	mt.Run("createdAt is only set on insert", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: attendanceDoc("rec-1", "STU001", "2024-05-01", "Late", created, updated)},
		})

		rec := &attendance.Attendance{ID: "new-id", StudentID: "STU001", Date: "2024-05-01", Status: attendance.StatusLate, CreatedAt: updated, UpdatedAt: updated}
		assert.NoError(t, attendance.NewMongoRepository(mt.DB).Upsert(context.Background(), rec))

		started := mt.GetStartedEvent()
		if !assert.NotNil(t, started) {
			return
		}
		assert.Equal(t, "findAndModify", started.CommandName)
		assert.True(t, started.Command.Lookup("upsert").Boolean())

		update, ok := started.Command.Lookup("update").DocumentOK()
		if !assert.True(t, ok) {
			return
		}

		_, err := update.LookupErr("$set", "createdAt")
		assert.Error(t, err, "an update must never rewrite createdAt")
		assert.Equal(t, "Late", update.Lookup("$set", "status").StringValue())
		assert.True(t, updated.Equal(update.Lookup("$set", "updatedAt").Time()))

		onInsert := update.Lookup("$setOnInsert", "createdAt")
		assert.True(t, updated.Equal(onInsert.Time()))
		assert.Equal(t, "new-id", update.Lookup("$setOnInsert", "_id").StringValue())
	})

	mt.Run("retries once after a duplicate key race", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11000,
				Name:    "DuplicateKey",
				Message: "E11000 duplicate key error collection: attendance index: uq_attendance_student_date",
			}),
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: attendanceDoc("rec-1", "STU001", "2024-05-01", "Absent", created, updated)},
			},
		)

		rec := &attendance.Attendance{ID: "new-id", StudentID: "STU001", Date: "2024-05-01", Status: attendance.StatusAbsent, CreatedAt: updated, UpdatedAt: updated}
		err := attendance.NewMongoRepository(mt.DB).Upsert(context.Background(), rec)

		assert.NoError(t, err)
		assert.Equal(t, "rec-1", rec.ID)
	})

	mt.Run("other command errors are returned", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad"}))

		rec := &attendance.Attendance{ID: "new-id", StudentID: "STU001", Date: "2024-05-01", Status: attendance.StatusPresent}
		err := attendance.NewMongoRepository(mt.DB).Upsert(context.Background(), rec)

		assert.Error(t, err)
		assert.Equal(t, "new-id", rec.ID)
	})
}

func TestMongoRepository_FindByDate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mt.Run("decodes the cursor batch", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + attendance.CollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			attendanceDoc("a1", "STU001", "2024-05-01", "Present", now, now),
			attendanceDoc("a2", "STU002", "2024-05-01", "Late", now, now),
		))

		rows, err := attendance.NewMongoRepository(mt.DB).FindByDate(context.Background(), "2024-05-01")

		assert.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, "STU002", rows[1].StudentID)
		assert.Equal(t, attendance.StatusLate, rows[1].Status)
	})

	mt.Run("no documents gives an empty slice", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + attendance.CollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		rows, err := attendance.NewMongoRepository(mt.DB).FindAll(context.Background())

		assert.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})
}
