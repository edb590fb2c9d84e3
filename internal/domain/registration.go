package domain

import (
	"context"
	"time"
)

// UserRegistration reserves a username inside one meeting. Unique per
// (meeting id, username); expires together with the meeting via the same
// TTL policy.
type UserRegistration struct {
	MeetingID string    `bson:"meeting_id" json:"meetingId"`
	Username  string    `bson:"username" json:"username"`
	Admin     bool      `bson:"admin" json:"admin"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type RegistrationRepository interface {
	// Register inserts the registration; returns ErrUsernameTaken when the
	// (meeting id, username) pair already exists.
	Register(ctx context.Context, reg *UserRegistration) error
	Exists(ctx context.Context, meetingID, username string) (bool, error)
	EnsureIndexes(ctx context.Context) error
}

// NewRegistration ties the registration's creation time to the meeting's so
// both records fall out of their TTL windows together.
func NewRegistration(meetingID, username string, admin bool, createdAt time.Time) *UserRegistration {
	return &UserRegistration{
		MeetingID: meetingID,
		Username:  username,
		Admin:     admin,
		CreatedAt: createdAt,
	}
}
