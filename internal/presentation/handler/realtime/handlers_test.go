package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/registry"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
	"github.com/peermeet/peermeet/internal/infrastructure/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeetingRepo struct {
	meetings map[string]*domain.Meeting
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[string]*domain.Meeting)}
}

func (f *fakeMeetingRepo) Create(ctx context.Context, meeting *domain.Meeting) error {
	f.meetings[meeting.MeetingID] = meeting
	return nil
}

func (f *fakeMeetingRepo) GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	meeting, ok := f.meetings[meetingID]
	if !ok {
		return nil, domain.ErrMeetingExpired
	}
	return meeting, nil
}

func (f *fakeMeetingRepo) EnsureIndexes(ctx context.Context) error { return nil }

type nopLogger struct{}

func (nopLogger) Init()                                                                   {}
func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any)                                                   {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Infof(string, ...any)                                                    {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Warnf(string, ...any)                                                    {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any)                                                   {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any)                                                   {}

type wireEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type testEnv struct {
	server   *httptest.Server
	meetings *fakeMeetingRepo
	registry *registry.Registry
	tokens   *token.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	meetings := newFakeMeetingRepo()
	occupancy := registry.New(2)
	tokens := token.NewCodec("test-secret")

	core := ws.NewCore(tokens, meetings, occupancy, nil, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx)

	handler := NewHandler(core, nopLogger{})
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &testEnv{
		server:   server,
		meetings: meetings,
		registry: occupancy,
		tokens:   tokens,
	}
}

func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http")
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *testEnv) addMeeting(t *testing.T) *domain.Meeting {
	t.Helper()

	meeting, err := domain.NewMeeting("alice", "pass1")
	require.NoError(t, err)
	require.NoError(t, e.meetings.Create(context.Background(), meeting))
	return meeting
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": eventType,
		"data": data,
	}))
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var event wireEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func enterMeeting(t *testing.T, e *testEnv, conn *websocket.Conn, meetingID, username, peerID string) {
	t.Helper()

	jwt, err := e.tokens.Issue(meetingID, username, false)
	require.NoError(t, err)

	sendEvent(t, conn, "ENTER-MEETING", map[string]string{"JWT": jwt, "PeerID": peerID})

	event := readEvent(t, conn)
	require.Equal(t, "ENTER-SUCCESS", event.Type)
}

func TestEnterMeetingOverWebsocket(t *testing.T) {
	e := newTestEnv(t)
	meeting := e.addMeeting(t)

	conn := e.dial(t)
	enterMeeting(t, e, conn, meeting.MeetingID, "bob", "peer-1")

	assert.Equal(t, 1, e.registry.Count(meeting.MeetingID))
}

func TestEnterMeetingWithBadTokenOverWebsocket(t *testing.T) {
	e := newTestEnv(t)
	meeting := e.addMeeting(t)

	conn := e.dial(t)
	sendEvent(t, conn, "ENTER-MEETING", map[string]string{"JWT": "not.a.token", "PeerID": "peer-1"})

	event := readEvent(t, conn)
	assert.Equal(t, "ERROR", event.Type)
	assert.Equal(t, "Failed to authenticate. Please try again.", event.Data["Error"])

	assert.Equal(t, 0, e.registry.Count(meeting.MeetingID))
}

func TestChatRelayOverWebsocket(t *testing.T) {
	e := newTestEnv(t)
	meeting := e.addMeeting(t)

	alice := e.dial(t)
	bob := e.dial(t)

	enterMeeting(t, e, alice, meeting.MeetingID, "alice", "peer-1")
	enterMeeting(t, e, bob, meeting.MeetingID, "bob", "peer-2")

	sendEvent(t, alice, "SENT-MESSAGE", map[string]string{"message": "hello bob"})

	event := readEvent(t, bob)
	assert.Equal(t, "RECEIVED-MESSAGE", event.Type)
	assert.Equal(t, "hello bob", event.Data["Data"])
	assert.Equal(t, "alice", event.Data["Username"])
}

func TestCallRequestRelayOverWebsocket(t *testing.T) {
	e := newTestEnv(t)
	meeting := e.addMeeting(t)

	alice := e.dial(t)
	bob := e.dial(t)

	enterMeeting(t, e, alice, meeting.MeetingID, "alice", "peer-1")
	enterMeeting(t, e, bob, meeting.MeetingID, "bob", "peer-2")

	sendEvent(t, alice, "CALL-REQUEST", map[string]string{"peerId": "peer-1"})

	event := readEvent(t, bob)
	assert.Equal(t, "CALL-REQUEST", event.Type)
	assert.Equal(t, "peer-1", event.Data["peerId"])
}

func TestDisconnectNotifiesRemainingPeer(t *testing.T) {
	e := newTestEnv(t)
	meeting := e.addMeeting(t)

	alice := e.dial(t)
	bob := e.dial(t)

	enterMeeting(t, e, alice, meeting.MeetingID, "alice", "peer-1")
	enterMeeting(t, e, bob, meeting.MeetingID, "bob", "peer-2")

	require.NoError(t, alice.Close())

	event := readEvent(t, bob)
	assert.Equal(t, "PEER-DISCONNECTED", event.Type)
	assert.Equal(t, "peer-1", event.Data["PeerID"])

	require.Eventually(t, func() bool {
		return e.registry.Count(meeting.MeetingID) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestThirdPeerRejectedOverWebsocket(t *testing.T) {
	e := newTestEnv(t)
	meeting := e.addMeeting(t)

	alice := e.dial(t)
	bob := e.dial(t)
	carol := e.dial(t)

	enterMeeting(t, e, alice, meeting.MeetingID, "alice", "peer-1")
	enterMeeting(t, e, bob, meeting.MeetingID, "bob", "peer-2")

	jwt, err := e.tokens.Issue(meeting.MeetingID, "carol", false)
	require.NoError(t, err)
	sendEvent(t, carol, "ENTER-MEETING", map[string]string{"JWT": jwt, "PeerID": "peer-3"})

	event := readEvent(t, carol)
	assert.Equal(t, "ERROR", event.Type)
	assert.Equal(t, "Meeting full.", event.Data["Error"])

	assert.Equal(t, 2, e.registry.Count(meeting.MeetingID))
}
