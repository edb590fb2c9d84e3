// Package realtime upgrades HTTP requests onto the websocket meeting
// channel. All protocol work (admission, relay, disconnect) happens inside
// the ws package; this handler only performs the upgrade and starts the
// connection's pumps.
package realtime

import (
	"net/http"

	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/ws"
)

type Handler struct {
	core   *ws.Core
	logger logging.Logger
}

func NewHandler(core *ws.Core, logger logging.Logger) *Handler {
	return &Handler{
		core:   core,
		logger: logger,
	}
}

// ServeWS godoc
// @Summary      Open the realtime meeting channel
// @Description  Upgrades to a WebSocket carrying the meeting event protocol
// @Tags         realtime
// @Success      101 "Switching Protocols"
// @Router       /ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.core.RoomManager().Upgrade(w, r)
	if err != nil {
		h.logger.Warn(logging.Realtime, logging.Admission, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, h.core)

	go client.WritePump()
	go client.ReadPump()
}
