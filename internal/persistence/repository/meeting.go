package repository

import (
	"context"
	"errors"
	"time"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type meetingRepository struct {
	db  *mongo.Database
	ttl time.Duration
}

func NewMeetingRepository(database *mongo.Database, ttl time.Duration) domain.MeetingRepository {
	return &meetingRepository{
		db:  database,
		ttl: ttl,
	}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	collection := r.db.Collection(db.MeetingsCollection)

	_, err := collection.InsertOne(ctx, meeting)
	return err
}

// GetByID maps the missing-document case to ErrMeetingExpired: the TTL
// index is the only eviction mechanism, so absence means the meeting's
// lifetime ran out (or it never existed, which callers treat the same way).
func (r *meetingRepository) GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	collection := r.db.Collection(db.MeetingsCollection)

	var meeting domain.Meeting
	err := collection.FindOne(ctx, bson.M{"meeting_id": meetingID}).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMeetingExpired
		}
		return nil, err
	}

	return &meeting, nil
}

func (r *meetingRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.MeetingsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "meeting_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(r.ttl.Seconds())),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
