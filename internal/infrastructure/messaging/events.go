package messaging

import "time"

const (
	MeetingsQueue   = "meetings"
	DeadLetterQueue = "dead_letter_queue"
)

type MeetingEventData struct {
	MeetingID string    `json:"meetingId"`
	Username  string    `json:"username,omitempty"`
	PeerID    string    `json:"peerId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
