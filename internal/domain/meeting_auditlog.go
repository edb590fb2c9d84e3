package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MeetingEventType string

const (
	EventMeetingCreated   MeetingEventType = "meeting_created"
	EventUserSignedIn     MeetingEventType = "user_signed_in"
	EventPeerEntered      MeetingEventType = "peer_entered"
	EventPeerDisconnected MeetingEventType = "peer_disconnected"
	EventMeetingFull      MeetingEventType = "meeting_full_rejected"
)

type MeetingAuditLog struct {
	ID        string           `bson:"_id" json:"id"`
	MeetingID string           `bson:"meeting_id" json:"meetingId"`
	EventType MeetingEventType `bson:"event_type" json:"eventType"`
	Timestamp time.Time        `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any   `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type MeetingAuditRepository interface {
	Log(ctx context.Context, log *MeetingAuditLog) error
	GetByMeetingID(ctx context.Context, meetingID string, limit int) ([]MeetingAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewMeetingAuditLog(meetingID string, eventType MeetingEventType, metadata map[string]any) *MeetingAuditLog {
	return &MeetingAuditLog{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		EventType: eventType,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
