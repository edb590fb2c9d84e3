package ws

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/registry"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeetingRepo struct {
	meetings map[string]*domain.Meeting
	getErr   error
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[string]*domain.Meeting)}
}

func (f *fakeMeetingRepo) Create(ctx context.Context, meeting *domain.Meeting) error {
	f.meetings[meeting.MeetingID] = meeting
	return nil
}

func (f *fakeMeetingRepo) GetByID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
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

type coreFixture struct {
	core     *Core
	meetings *fakeMeetingRepo
	registry *registry.Registry
	tokens   *token.Codec
	cancel   context.CancelFunc
}

func newCoreFixture(t *testing.T) *coreFixture {
	t.Helper()

	meetings := newFakeMeetingRepo()
	occupancy := registry.New(2)
	tokens := token.NewCodec("test-secret")

	core := NewCore(tokens, meetings, occupancy, nil, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx)
	t.Cleanup(cancel)

	return &coreFixture{
		core:     core,
		meetings: meetings,
		registry: occupancy,
		tokens:   tokens,
		cancel:   cancel,
	}
}

func (f *coreFixture) addMeeting(t *testing.T) *domain.Meeting {
	t.Helper()

	meeting, err := domain.NewMeeting("alice", "pass1")
	require.NoError(t, err)
	require.NoError(t, f.meetings.Create(context.Background(), meeting))
	return meeting
}

func (f *coreFixture) enter(t *testing.T, meetingID, username, peerID string) *Client {
	t.Helper()

	jwt, err := f.tokens.Issue(meetingID, username, false)
	require.NoError(t, err)

	client := NewClient(nil, f.core)
	client.handleEnter(mustMarshal(t, EnterPayload{JWT: jwt, PeerID: peerID}))

	event := receiveEvent(t, client)
	require.Equal(t, EnterSuccess, event.Type)
	require.Equal(t, StateInRoom, client.State())
	return client
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func receiveEvent(t *testing.T, client *Client) *Event {
	t.Helper()

	select {
	case event := <-client.send:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, client *Client) {
	t.Helper()

	select {
	case event := <-client.send:
		t.Fatalf("unexpected event %q", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEnterWithTamperedTokenRejected(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	jwt, err := f.tokens.Issue(meeting.MeetingID, "bob", false)
	require.NoError(t, err)

	segments := strings.Split(jwt, ".")
	tampered := segments[0] + "." + segments[1] + ".dGFtcGVyZWQ="

	client := NewClient(nil, f.core)
	client.handleEnter(mustMarshal(t, EnterPayload{JWT: tampered, PeerID: "peer-1"}))

	event := receiveEvent(t, client)
	assert.Equal(t, ErrorEvent, event.Type)
	assert.Equal(t, ErrorPayload{Error: MsgAuthFailed}, event.Data)

	// No join happened: the occupancy count is untouched.
	assert.Equal(t, 0, f.registry.Count(meeting.MeetingID))
	assert.Equal(t, StateConnected, client.State())
}

func TestEnterWithMissingFieldsRejected(t *testing.T) {
	f := newCoreFixture(t)

	client := NewClient(nil, f.core)
	client.handleEnter(mustMarshal(t, EnterPayload{JWT: "", PeerID: "peer-1"}))

	event := receiveEvent(t, client)
	assert.Equal(t, ErrorEvent, event.Type)
	assert.Equal(t, ErrorPayload{Error: MsgAuthFailed}, event.Data)
}

func TestEnterSuccess(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	client := f.enter(t, meeting.MeetingID, "bob", "peer-1")

	assert.Equal(t, 1, f.registry.Count(meeting.MeetingID))
	assert.Equal(t, "peer-1", client.peerID)
	assert.Equal(t, "bob", client.claims.Username)
	assert.Equal(t, 1, f.core.RoomManager().RoomSize(meeting.MeetingID))
}

func TestEnterExpiredMeetingReleasesSlot(t *testing.T) {
	f := newCoreFixture(t)

	jwt, err := f.tokens.Issue("gonezzzz", "bob", false)
	require.NoError(t, err)

	client := NewClient(nil, f.core)
	client.handleEnter(mustMarshal(t, EnterPayload{JWT: jwt, PeerID: "peer-1"}))

	event := receiveEvent(t, client)
	assert.Equal(t, ErrorEvent, event.Type)
	assert.Equal(t, ErrorPayload{Error: MsgMeetingExpired}, event.Data)

	// The slot reserved during admission is handed back.
	assert.Equal(t, 0, f.registry.Count("gonezzzz"))
}

func TestEnterFullMeetingRejected(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	f.enter(t, meeting.MeetingID, "alice", "peer-1")
	f.enter(t, meeting.MeetingID, "bob", "peer-2")

	jwt, err := f.tokens.Issue(meeting.MeetingID, "carol", false)
	require.NoError(t, err)

	third := NewClient(nil, f.core)
	third.handleEnter(mustMarshal(t, EnterPayload{JWT: jwt, PeerID: "peer-3"}))

	event := receiveEvent(t, third)
	assert.Equal(t, ErrorEvent, event.Type)
	assert.Equal(t, ErrorPayload{Error: MsgMeetingFull}, event.Data)

	assert.Equal(t, 2, f.registry.Count(meeting.MeetingID))
	assert.Equal(t, StateConnected, third.State())
}

func TestMessageRelayedToOthersOnly(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	alice := f.enter(t, meeting.MeetingID, "alice", "peer-1")
	bob := f.enter(t, meeting.MeetingID, "bob", "peer-2")

	alice.handleMessage(mustMarshal(t, MessagePayload{Message: "hello"}))

	event := receiveEvent(t, bob)
	assert.Equal(t, ReceivedMessage, event.Type)
	assert.Equal(t, ReceivedMessagePayload{Data: "hello", Username: "alice"}, event.Data)

	// Never echoed back to the sender.
	assertNoEvent(t, alice)
}

func TestEmptyMessageIgnored(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	alice := f.enter(t, meeting.MeetingID, "alice", "peer-1")
	bob := f.enter(t, meeting.MeetingID, "bob", "peer-2")

	alice.handleMessage(mustMarshal(t, MessagePayload{Message: ""}))

	assertNoEvent(t, bob)
}

func TestCallRequestRelayed(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	alice := f.enter(t, meeting.MeetingID, "alice", "peer-1")
	bob := f.enter(t, meeting.MeetingID, "bob", "peer-2")

	alice.handleCall(mustMarshal(t, CallPayload{PeerID: "peer-1"}))

	event := receiveEvent(t, bob)
	assert.Equal(t, CallRequest, event.Type)
	assert.Equal(t, CallPayload{PeerID: "peer-1"}, event.Data)

	assertNoEvent(t, alice)
}

func TestDisconnectBroadcastsAndFreesSlot(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	alice := f.enter(t, meeting.MeetingID, "alice", "peer-1")
	bob := f.enter(t, meeting.MeetingID, "bob", "peer-2")

	f.core.drop(alice)

	event := receiveEvent(t, bob)
	assert.Equal(t, PeerDisconnected, event.Type)
	assert.Equal(t, PeerDisconnectedPayload{PeerID: "peer-1"}, event.Data)

	assert.Equal(t, 1, f.registry.Count(meeting.MeetingID))
	assert.Equal(t, StateDisconnected, alice.State())
	assert.Equal(t, 1, f.core.RoomManager().RoomSize(meeting.MeetingID))
}

func TestRepeatedDisconnectDecrementsOnce(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	alice := f.enter(t, meeting.MeetingID, "alice", "peer-1")
	f.enter(t, meeting.MeetingID, "bob", "peer-2")

	f.core.drop(alice)
	f.core.drop(alice)

	assert.Equal(t, 1, f.registry.Count(meeting.MeetingID))
}

func TestDisconnectBeforeEnterLeavesOccupancyAlone(t *testing.T) {
	f := newCoreFixture(t)
	meeting := f.addMeeting(t)

	client := NewClient(nil, f.core)
	f.core.drop(client)

	assert.Equal(t, 0, f.registry.Count(meeting.MeetingID))
	assert.Equal(t, StateDisconnected, client.State())
}

func TestDispatchIgnoresRoomEventsBeforeEnter(t *testing.T) {
	f := newCoreFixture(t)
	f.addMeeting(t)

	client := NewClient(nil, f.core)
	client.dispatch(&inboundEvent{Type: SentMessage, Data: mustMarshal(t, MessagePayload{Message: "hi"})})
	client.dispatch(&inboundEvent{Type: CallRequest, Data: mustMarshal(t, CallPayload{PeerID: "x"})})

	assertNoEvent(t, client)
	assert.Equal(t, StateConnected, client.State())
}
