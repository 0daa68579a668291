package worker

import (
	"context"
	"time"

	"github.com/xenn00/ruready-server/internal/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	DLQStatusPending           = "pending"
	DLQStatusProcessing        = "processing"
	DLQStatusFailed            = "failed"
	DLQStatusCompleted         = "completed"
	DLQStatusPermanentlyFailed = "permanently_failed"

	dlqRetention = 7 * 24 * time.Hour
)

// DLQStore persists dead jobs so they survive Redis and can be re-driven.
type DLQStore interface {
	Save(ctx context.Context, job entity.DLQJob) error
	FindRetryable(ctx context.Context, now time.Time, maxRetry, limit int) ([]entity.DLQJob, error)
	MarkProcessing(ctx context.Context, id bson.ObjectID) error
	MarkCompleted(ctx context.Context, id bson.ObjectID) error
	MarkRetry(ctx context.Context, id bson.ObjectID, retryCount int, errMsg string, next time.Time) error
	MarkPermanentlyFailed(ctx context.Context, id bson.ObjectID, errMsg string) error
	MarkInvalid(ctx context.Context, id bson.ObjectID, reason, errMsg string) error
	Stats(ctx context.Context) (map[string]int64, error)
}

type MongoDLQStore struct {
	Collection *mongo.Collection
}

func NewMongoDLQStore(db *mongo.Database, collection string) *MongoDLQStore {
	return &MongoDLQStore{Collection: db.Collection(collection)}
}

// EnsureIndexes expires documents at expired_at and supports the retry scan.
func (s *MongoDLQStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expired_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "next_retry_at", Value: 1}},
		},
	})
	return err
}

func (s *MongoDLQStore) Save(ctx context.Context, job entity.DLQJob) error {
	_, err := s.Collection.InsertOne(ctx, job)
	return err
}

func (s *MongoDLQStore) FindRetryable(ctx context.Context, now time.Time, maxRetry, limit int) ([]entity.DLQJob, error) {
	filter := bson.M{
		"status":      bson.M{"$in": []string{DLQStatusPending, DLQStatusFailed}},
		"retry_count": bson.M{"$lt": maxRetry},
		"$or": []bson.M{
			{"next_retry_at": bson.M{"$exists": false}},
			{"next_retry_at": bson.M{"$lte": now.UTC()}},
		},
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1}).SetLimit(int64(limit))

	cursor, err := s.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []entity.DLQJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *MongoDLQStore) set(ctx context.Context, id bson.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	_, err := s.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return err
}

func (s *MongoDLQStore) MarkProcessing(ctx context.Context, id bson.ObjectID) error {
	return s.set(ctx, id, bson.M{"status": DLQStatusProcessing})
}

func (s *MongoDLQStore) MarkCompleted(ctx context.Context, id bson.ObjectID) error {
	return s.set(ctx, id, bson.M{"status": DLQStatusCompleted, "completed_at": time.Now().UTC()})
}

func (s *MongoDLQStore) MarkRetry(ctx context.Context, id bson.ObjectID, retryCount int, errMsg string, next time.Time) error {
	return s.set(ctx, id, bson.M{
		"status":        DLQStatusFailed,
		"retry_count":   retryCount,
		"error_msg":     errMsg,
		"next_retry_at": next.UTC(),
	})
}

func (s *MongoDLQStore) MarkPermanentlyFailed(ctx context.Context, id bson.ObjectID, errMsg string) error {
	return s.set(ctx, id, bson.M{
		"status":    DLQStatusPermanentlyFailed,
		"error_msg": errMsg,
		"failed_at": time.Now().UTC(),
	})
}

func (s *MongoDLQStore) MarkInvalid(ctx context.Context, id bson.ObjectID, reason, errMsg string) error {
	return s.set(ctx, id, bson.M{
		"status":    DLQStatusPermanentlyFailed,
		"reason":    reason,
		"error_msg": errMsg,
		"failed_at": time.Now().UTC(),
	})
}

func (s *MongoDLQStore) Stats(ctx context.Context) (map[string]int64, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := s.Collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		stats[row.Status] = row.Count
	}
	return stats, cursor.Err()
}
