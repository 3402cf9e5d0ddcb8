package attendance

import (
	"context"
	"database/sql"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "attendance"

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureMongoIndexes creates the unique (studentId, date) index the upsert relies on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_attendance_student_date"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("idx_attendance_date"),
		},
	})
	return err
}

// Mongo has no *sql.Tx; each upsert is atomic on its own document.
func (r *mongoRepository) WithTx(*sql.Tx) Repository {
	return r
}

func (r *mongoRepository) Upsert(ctx context.Context, a *Attendance) error {
	filter := bson.D{{Key: "studentId", Value: a.StudentID}, {Key: "date", Value: a.Date}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: a.Status},
			{Key: "updatedAt", Value: a.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "_id", Value: a.ID},
			{Key: "createdAt", Value: a.CreatedAt},
		}},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored Attendance
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts both missed; the loser retries as an update.
		stored = Attendance{}
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		return err
	}

	*a = stored
	return nil
}

func (r *mongoRepository) FindByDate(ctx context.Context, date string) ([]Attendance, error) {
	return r.find(ctx, bson.D{{Key: "date", Value: date}})
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]Attendance, error) {
	return r.find(ctx, bson.D{})
}

func (r *mongoRepository) find(ctx context.Context, filter bson.D) ([]Attendance, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rows := make([]Attendance, 0)
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
