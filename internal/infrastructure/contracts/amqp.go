package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	MeetingID string `json:"meetingId"`
	Data      []byte `json:"data"`
}

// Routing keys - using consistent event patterns
const (
	EventMeetingCreated   = "meeting.created"
	EventUserSignedIn     = "user.signed_in"
	EventPeerEntered      = "peer.entered"
	EventPeerDisconnected = "peer.disconnected"
	EventMeetingFull      = "meeting.full_rejected"
)
