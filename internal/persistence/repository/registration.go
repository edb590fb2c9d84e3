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

type registrationRepository struct {
	db  *mongo.Database
	ttl time.Duration
}

func NewRegistrationRepository(database *mongo.Database, ttl time.Duration) domain.RegistrationRepository {
	return &registrationRepository{
		db:  database,
		ttl: ttl,
	}
}

func (r *registrationRepository) Register(ctx context.Context, reg *domain.UserRegistration) error {
	collection := r.db.Collection(db.RegistrationsCollection)

	_, err := collection.InsertOne(ctx, reg)
	if err != nil {
		// The unique (meeting_id, username) index turns a racing duplicate
		// sign-in into a clean business error.
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUsernameTaken
		}
		return err
	}

	return nil
}

func (r *registrationRepository) Exists(ctx context.Context, meetingID, username string) (bool, error) {
	collection := r.db.Collection(db.RegistrationsCollection)

	count, err := collection.CountDocuments(ctx, bson.M{
		"meeting_id": meetingID,
		"username":   username,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *registrationRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.RegistrationsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "meeting_id", Value: 1},
				{Key: "username", Value: 1},
			},
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
