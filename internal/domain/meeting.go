package domain

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peermeet/peermeet/internal/infrastructure/validate"
	"golang.org/x/crypto/sha3"
)

const (
	MeetingIDLength = 8
	saltBytes       = 16
)

var (
	// ErrMeetingExpired covers the absent-record case: records are evicted
	// by the store's TTL index, so "not found" is the expiry signal.
	ErrMeetingExpired    = errors.New("meeting expired")
	ErrMeetingFull       = errors.New("meeting is full")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrIncorrectPassword = errors.New("incorrect password")
)

// Validation rules shared by the REST handlers. Username and meeting id are
// measured after trimming surrounding whitespace.
var (
	UsernameRule  = validate.TrimmedLengthBetween(1, 20)
	PasswordRule  = validate.LengthBetween(4, 20)
	MeetingIDRule = validate.TrimmedLength(MeetingIDLength)
)

// Meeting is a time-bounded two-party room protected by a password hash.
// Immutable after creation; it disappears when the TTL index evicts it.
type Meeting struct {
	MeetingID string    `bson:"meeting_id" json:"meetingId"`
	Password  string    `bson:"password" json:"-"`
	Salt      string    `bson:"salt" json:"-"`
	Admin     string    `bson:"admin" json:"admin"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type MeetingRepository interface {
	Create(ctx context.Context, meeting *Meeting) error
	GetByID(ctx context.Context, meetingID string) (*Meeting, error)
	EnsureIndexes(ctx context.Context) error
}

// NewMeeting mints a meeting with a fresh 8-character id and a per-meeting
// random salt. Id collisions are not handled: the space is large enough
// that a clash within one TTL window is vanishingly unlikely, and a clash
// surfaces as a duplicate-key error from the store.
func NewMeeting(adminUsername, password string) (*Meeting, error) {
	salt, err := generateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &Meeting{
		MeetingID: uuid.NewString()[:MeetingIDLength],
		Password:  HashPassword(password, salt),
		Salt:      salt,
		Admin:     adminUsername,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// HashPassword computes SHA3-256(password + salt), hex encoded.
func HashPassword(password, salt string) string {
	sum := sha3.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword recomputes the hash with the meeting's salt and compares
// in constant time.
func (m *Meeting) VerifyPassword(password string) bool {
	candidate := HashPassword(password, m.Salt)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(m.Password)) == 1
}

func generateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
