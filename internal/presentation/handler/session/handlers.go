// Package session implements the REST surface that mints meeting sessions:
// creating a meeting and signing in to one. Both hand back a signed bearer
// token the realtime channel later verifies.
package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/events"
	"github.com/peermeet/peermeet/internal/infrastructure/json"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/metrics"
	"github.com/peermeet/peermeet/internal/infrastructure/registry"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
)

// Canonical validation messages, kept stable for the browser client.
const (
	msgBadUsername  = "Username length must be between 1 and 20 (excluding whitespace)"
	msgBadPassword  = "Password length must be between 4 and 20."
	msgBadMeetingID = "Meeting ID length must be 8 characters."

	msgMeetingExpired    = "Meeting expired."
	msgMeetingFull       = "Meeting is full."
	msgUsernameTaken     = "Username already taken"
	msgIncorrectPassword = "Incorrect password"
)

type Handler struct {
	meetings      domain.MeetingRepository
	registrations domain.RegistrationRepository
	occupancy     *registry.Registry
	tokens        *token.Codec
	publisher     *events.MeetingPublisher
	logger        logging.Logger
}

func NewHandler(
	meetings domain.MeetingRepository,
	registrations domain.RegistrationRepository,
	occupancy *registry.Registry,
	tokens *token.Codec,
	publisher *events.MeetingPublisher,
	logger logging.Logger,
) *Handler {
	return &Handler{
		meetings:      meetings,
		registrations: registrations,
		occupancy:     occupancy,
		tokens:        tokens,
		publisher:     publisher,
		logger:        logger,
	}
}

// CreateMeetingHandler godoc
// @Summary      Create a new meeting
// @Description  Creates a password-protected meeting and returns an admin session token
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body createMeetingRequest true "Meeting creation parameters"
// @Success      200 {object} sessionResponse "Meeting created"
// @Failure      400 {object} map[string]interface{} "Validation error"
// @Failure      500 {object} map[string]interface{} "Storage error"
// @Router       /create-meeting [post]
func (h *Handler) CreateMeetingHandler(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := domain.UsernameRule(req.Username); err != nil {
		json.WriteBadRequestError(w, msgBadUsername)
		return
	}
	if err := domain.PasswordRule(req.Password); err != nil {
		json.WriteBadRequestError(w, msgBadPassword)
		return
	}

	username := strings.TrimSpace(req.Username)

	meeting, err := domain.NewMeeting(username, req.Password)
	if err != nil {
		h.logger.Error(logging.Internal, logging.ExternalService, "failed to mint meeting", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	ctx := r.Context()

	if err := h.meetings.Create(ctx, meeting); err != nil {
		h.logger.Error(logging.Mongo, logging.ExternalService, "failed to persist meeting", map[logging.ExtraKey]any{
			logging.MeetingID:    meeting.MeetingID,
			logging.ErrorMessage: err.Error(),
		})
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	// No compensating delete if this insert fails: the orphaned meeting is
	// unreachable without a registration and the TTL index reclaims it.
	registration := domain.NewRegistration(meeting.MeetingID, username, true, meeting.CreatedAt)
	if err := h.registrations.Register(ctx, registration); err != nil {
		h.logger.Error(logging.Mongo, logging.ExternalService, "failed to persist admin registration", map[logging.ExtraKey]any{
			logging.MeetingID:    meeting.MeetingID,
			logging.Username:     username,
			logging.ErrorMessage: err.Error(),
		})
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	jwt, err := h.tokens.Issue(meeting.MeetingID, username, true)
	if err != nil {
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	metrics.MeetingsCreated.Inc()

	if err := h.publisher.PublishMeetingCreated(ctx, meeting.MeetingID, username); err != nil {
		h.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish meeting created event", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	_ = json.Write(w, http.StatusOK, sessionResponse{
		Username: username,
		Meeting:  meeting.MeetingID,
		Admin:    true,
		JWT:      jwt,
	})
}

// SignInHandler godoc
// @Summary      Sign in to a meeting
// @Description  Validates the meeting password and returns a participant session token
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body signInRequest true "Sign-in parameters"
// @Success      200 {object} sessionResponse "Signed in"
// @Failure      400 {object} map[string]interface{} "Validation or business rejection"
// @Failure      500 {object} map[string]interface{} "Storage error"
// @Router       /sign-in [post]
func (h *Handler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if err := domain.MeetingIDRule(req.Meeting); err != nil {
		json.WriteBadRequestError(w, msgBadMeetingID)
		return
	}
	if err := domain.UsernameRule(req.Username); err != nil {
		json.WriteBadRequestError(w, msgBadUsername)
		return
	}
	if err := domain.PasswordRule(req.Password); err != nil {
		json.WriteBadRequestError(w, msgBadPassword)
		return
	}

	meetingID := strings.TrimSpace(req.Meeting)
	username := strings.TrimSpace(req.Username)

	ctx := r.Context()

	meeting, err := h.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, domain.ErrMeetingExpired) {
			metrics.SessionRejections.WithLabelValues(metrics.ReasonExpired).Inc()
			json.WriteBadRequestError(w, msgMeetingExpired)
			return
		}

		h.logger.Error(logging.Mongo, logging.ExternalService, "failed to load meeting", map[logging.ExtraKey]any{
			logging.MeetingID:    meetingID,
			logging.ErrorMessage: err.Error(),
		})
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	// Best-effort pre-check: the realtime channel's atomic admission is the
	// authority, this just rejects obvious third joiners early.
	if h.occupancy.Full(meetingID) {
		metrics.SessionRejections.WithLabelValues(metrics.ReasonFull).Inc()
		if err := h.publisher.PublishMeetingFull(ctx, meetingID); err != nil {
			h.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish meeting full event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		json.WriteBadRequestError(w, msgMeetingFull)
		return
	}

	taken, err := h.registrations.Exists(ctx, meetingID, username)
	if err != nil {
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}
	if taken {
		metrics.SessionRejections.WithLabelValues(metrics.ReasonTaken).Inc()
		json.WriteBadRequestError(w, msgUsernameTaken)
		return
	}

	if !meeting.VerifyPassword(req.Password) {
		metrics.SessionRejections.WithLabelValues(metrics.ReasonBadPassword).Inc()
		json.WriteBadRequestError(w, msgIncorrectPassword)
		return
	}

	registration := domain.NewRegistration(meeting.MeetingID, username, false, meeting.CreatedAt)
	if err := h.registrations.Register(ctx, registration); err != nil {
		// The unique index closes the race between the Exists check and this
		// insert.
		if errors.Is(err, domain.ErrUsernameTaken) {
			metrics.SessionRejections.WithLabelValues(metrics.ReasonTaken).Inc()
			json.WriteBadRequestError(w, msgUsernameTaken)
			return
		}

		h.logger.Error(logging.Mongo, logging.ExternalService, "failed to persist registration", map[logging.ExtraKey]any{
			logging.MeetingID:    meetingID,
			logging.Username:     username,
			logging.ErrorMessage: err.Error(),
		})
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	jwt, err := h.tokens.Issue(meetingID, username, false)
	if err != nil {
		metrics.SessionRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		json.WriteInternalError(w, err)
		return
	}

	metrics.SignIns.Inc()

	if err := h.publisher.PublishUserSignedIn(ctx, meetingID, username); err != nil {
		h.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish sign-in event", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	_ = json.Write(w, http.StatusOK, sessionResponse{
		Username: username,
		Meeting:  meetingID,
		Admin:    false,
		JWT:      jwt,
	})
}
