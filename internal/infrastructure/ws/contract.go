package ws

// Wire event names, client->server and server->client. These match what
// the browser client emits and listens for.
const (
	EnterMeeting = "ENTER-MEETING"
	SentMessage  = "SENT-MESSAGE"
	CallRequest  = "CALL-REQUEST"

	EnterSuccess     = "ENTER-SUCCESS"
	ErrorEvent       = "ERROR"
	ReceivedMessage  = "RECEIVED-MESSAGE"
	PeerDisconnected = "PEER-DISCONNECTED"
)

// User-facing error messages carried in ERROR events.
const (
	MsgAuthFailed     = "Failed to authenticate. Please try again."
	MsgMeetingFull    = "Meeting full."
	MsgMeetingExpired = "Meeting expired."
	MsgInternalError  = "Database internal error."
)
