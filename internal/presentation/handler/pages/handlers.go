// Package pages serves the browser client shell. The meeting deep link
// checks the meeting still exists before handing out the shell, so stale
// links land back on the home page instead of a dead room.
package pages

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
)

type Handler struct {
	meetings domain.MeetingRepository
	buildDir string
	logger   logging.Logger
}

func NewHandler(meetings domain.MeetingRepository, buildDir string, logger logging.Logger) *Handler {
	return &Handler{
		meetings: meetings,
		buildDir: buildDir,
		logger:   logger,
	}
}

// GetMeetingPageHandler godoc
// @Summary      Open a meeting link
// @Description  Serves the client shell when the meeting exists, otherwise redirects home
// @Tags         pages
// @Produce      html
// @Param        meetingId path string true "Meeting ID"
// @Success      200 "Client application shell"
// @Failure      302 "Meeting absent, redirected to home"
// @Router       /meeting/{meetingId} [get]
func (h *Handler) GetMeetingPageHandler(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "meetingId")

	if _, err := h.meetings.GetByID(r.Context(), meetingID); err != nil {
		// Expired and storage-error both fall back to home; the shell is
		// useless either way.
		h.logger.Info(logging.RequestResponse, logging.ExternalService, "meeting link rejected", map[logging.ExtraKey]any{
			logging.MeetingID:    meetingID,
			logging.ErrorMessage: err.Error(),
		})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.buildDir, "index.html"))
}
