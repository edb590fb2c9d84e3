package repository

import (
	"context"
	"time"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type meetingAuditLogRepository struct {
	db *mongo.Database
}

func NewMeetingAuditLogRepository(database *mongo.Database) domain.MeetingAuditRepository {
	return &meetingAuditLogRepository{
		db: database,
	}
}

func (r *meetingAuditLogRepository) Log(ctx context.Context, log *domain.MeetingAuditLog) error {
	collection := r.db.Collection(db.MeetingAuditLogsCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func (r *meetingAuditLogRepository) GetByMeetingID(ctx context.Context, meetingID string, limit int) ([]domain.MeetingAuditLog, error) {
	collection := r.db.Collection(db.MeetingAuditLogsCollection)

	filter := bson.M{"meeting_id": meetingID}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []domain.MeetingAuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *meetingAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	collection := r.db.Collection(db.MeetingAuditLogsCollection)

	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := collection.DeleteMany(ctx, filter)
	return err
}

func (r *meetingAuditLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.MeetingAuditLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "meeting_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(7776000), // 90 days TTL
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
