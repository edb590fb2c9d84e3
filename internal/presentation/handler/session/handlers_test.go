package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/registry"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeetingRepo struct {
	meetings  map[string]*domain.Meeting
	createErr error
	getErr    error
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[string]*domain.Meeting)}
}

func (f *fakeMeetingRepo) Create(ctx context.Context, meeting *domain.Meeting) error {
	if f.createErr != nil {
		return f.createErr
	}
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

type fakeRegistrationRepo struct {
	registrations map[string]bool
	registerErr   error
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{registrations: make(map[string]bool)}
}

func (f *fakeRegistrationRepo) key(meetingID, username string) string {
	return meetingID + "/" + username
}

func (f *fakeRegistrationRepo) Register(ctx context.Context, reg *domain.UserRegistration) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	k := f.key(reg.MeetingID, reg.Username)
	if f.registrations[k] {
		return domain.ErrUsernameTaken
	}
	f.registrations[k] = true
	return nil
}

func (f *fakeRegistrationRepo) Exists(ctx context.Context, meetingID, username string) (bool, error) {
	return f.registrations[f.key(meetingID, username)], nil
}

func (f *fakeRegistrationRepo) EnsureIndexes(ctx context.Context) error { return nil }

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

type handlerFixture struct {
	handler       *Handler
	meetings      *fakeMeetingRepo
	registrations *fakeRegistrationRepo
	occupancy     *registry.Registry
	tokens        *token.Codec
}

func newFixture() *handlerFixture {
	meetings := newFakeMeetingRepo()
	registrations := newFakeRegistrationRepo()
	occupancy := registry.New(2)
	tokens := token.NewCodec("test-secret")

	return &handlerFixture{
		handler:       NewHandler(meetings, registrations, occupancy, tokens, nil, nopLogger{}),
		meetings:      meetings,
		registrations: registrations,
		occupancy:     occupancy,
		tokens:        tokens,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error string `json:"Error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestCreateMeetingSuccess(t *testing.T) {
	f := newFixture()

	rec := postJSON(t, f.handler.CreateMeetingHandler, "/api/create-meeting", createMeetingRequest{
		Username: "alice",
		Password: "pass1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "alice", resp.Username)
	assert.True(t, resp.Admin)
	assert.Len(t, resp.Meeting, domain.MeetingIDLength)
	assert.Len(t, strings.Split(resp.JWT, "."), 3)

	// The admin's registration is persisted alongside the meeting.
	taken, err := f.registrations.Exists(context.Background(), resp.Meeting, "alice")
	require.NoError(t, err)
	assert.True(t, taken)

	// And the token it hands back verifies against the same codec.
	decoded, err := f.tokens.Verify(resp.JWT)
	require.NoError(t, err)
	assert.Equal(t, resp.Meeting, decoded.Claims.Meeting)
	assert.True(t, decoded.Claims.Admin)
}

func TestCreateMeetingValidation(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name    string
		request createMeetingRequest
		message string
	}{
		{"empty username", createMeetingRequest{Username: "", Password: "pass1"}, msgBadUsername},
		{"whitespace username", createMeetingRequest{Username: "   ", Password: "pass1"}, msgBadUsername},
		{"long username", createMeetingRequest{Username: strings.Repeat("a", 21), Password: "pass1"}, msgBadUsername},
		{"short password", createMeetingRequest{Username: "alice", Password: "abc"}, msgBadPassword},
		{"long password", createMeetingRequest{Username: "alice", Password: strings.Repeat("p", 21)}, msgBadPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, f.handler.CreateMeetingHandler, "/api/create-meeting", tc.request)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, decodeError(t, rec))
		})
	}
}

func TestCreateMeetingStorageError(t *testing.T) {
	f := newFixture()
	f.meetings.createErr = errors.New("insert failed")

	rec := postJSON(t, f.handler.CreateMeetingHandler, "/api/create-meeting", createMeetingRequest{
		Username: "alice",
		Password: "pass1",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Database internal error.", decodeError(t, rec))
}

func createMeeting(t *testing.T, f *handlerFixture) string {
	t.Helper()

	rec := postJSON(t, f.handler.CreateMeetingHandler, "/api/create-meeting", createMeetingRequest{
		Username: "alice",
		Password: "pass1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Meeting
}

func TestSignInSuccess(t *testing.T) {
	f := newFixture()
	meetingID := createMeeting(t, f)

	rec := postJSON(t, f.handler.SignInHandler, "/api/sign-in", signInRequest{
		Meeting:  meetingID,
		Username: "bob",
		Password: "pass1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "bob", resp.Username)
	assert.Equal(t, meetingID, resp.Meeting)
	assert.False(t, resp.Admin)

	decoded, err := f.tokens.Verify(resp.JWT)
	require.NoError(t, err)
	assert.False(t, decoded.Claims.Admin)
}

func TestSignInToUnknownMeeting(t *testing.T) {
	f := newFixture()

	rec := postJSON(t, f.handler.SignInHandler, "/api/sign-in", signInRequest{
		Meeting:  "zzzzzzzz",
		Username: "bob",
		Password: "pass1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Meeting expired.", decodeError(t, rec))
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture()
	meetingID := createMeeting(t, f)

	rec := postJSON(t, f.handler.SignInHandler, "/api/sign-in", signInRequest{
		Meeting:  meetingID,
		Username: "bob",
		Password: "wrongpw",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect password", decodeError(t, rec))

	// A rejected sign-in must not reserve the username.
	taken, err := f.registrations.Exists(context.Background(), meetingID, "bob")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestSignInUsernameTaken(t *testing.T) {
	f := newFixture()
	meetingID := createMeeting(t, f)

	rec := postJSON(t, f.handler.SignInHandler, "/api/sign-in", signInRequest{
		Meeting:  meetingID,
		Username: "alice",
		Password: "pass1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already taken", decodeError(t, rec))
}

func TestSignInMeetingFull(t *testing.T) {
	f := newFixture()
	meetingID := createMeeting(t, f)

	// Two live peers already in the room.
	require.True(t, f.occupancy.TryJoin(meetingID))
	require.True(t, f.occupancy.TryJoin(meetingID))

	rec := postJSON(t, f.handler.SignInHandler, "/api/sign-in", signInRequest{
		Meeting:  meetingID,
		Username: "carol",
		Password: "pass1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Meeting is full.", decodeError(t, rec))
}

func TestSignInValidation(t *testing.T) {
	f := newFixture()

	rec := postJSON(t, f.handler.SignInHandler, "/api/sign-in", signInRequest{
		Meeting:  "short",
		Username: "bob",
		Password: "pass1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBadMeetingID, decodeError(t, rec))
}
