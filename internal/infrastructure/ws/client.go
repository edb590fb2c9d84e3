package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/metrics"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
)

// Connection lifecycle. Dispatch is gated on the current state: before a
// successful ENTER-MEETING only the enter handshake is processed, afterwards
// only in-room events are.
type ConnState int32

const (
	StateConnected ConnState = iota
	StateInRoom
	StateDisconnected
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64

	lookupTimeout = 5 * time.Second
)

type Client struct {
	conn *websocket.Conn
	core *Core
	send chan *Event

	state  atomic.Int32
	claims token.Claims
	peerID string
}

func NewClient(conn *websocket.Conn, core *Core) *Client {
	return &Client{
		conn: conn,
		core: core,
		send: make(chan *Event, sendBuffer),
	}
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

// enqueue hands an event to the write pump without blocking the caller. The
// send channel is closed during teardown, so a racing delivery may hit a
// closed channel; the recover turns that into a dropped message.
func (c *Client) enqueue(event *Event) {
	defer func() {
		_ = recover()
	}()

	select {
	case c.send <- event:
	default:
	}
}

// ReadPump consumes frames from the connection until it errors or closes,
// then funnels the client through the core's unregister path exactly once.
func (c *Client) ReadPump() {
	defer func() {
		c.core.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.core.logger.Warn(logging.Realtime, logging.Broadcast, "unexpected close", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}

		c.dispatch(&event)
	}
}

// WritePump drains the send channel onto the connection and keeps the peer
// alive with pings. It exits when the channel is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(event *inboundEvent) {
	switch c.State() {
	case StateConnected:
		if event.Type == EnterMeeting {
			c.handleEnter(event.Data)
		}
	case StateInRoom:
		switch event.Type {
		case SentMessage:
			c.handleMessage(event.Data)
		case CallRequest:
			c.handleCall(event.Data)
		}
	}
}

// handleEnter runs the admission handshake: verify the token signature,
// reserve an occupancy slot, then confirm the meeting record still exists.
// Capacity is checked only after the signature holds, so unverifiable claims
// never consume a slot. A reserved slot is released again if the meeting
// turns out to be gone.
func (c *Client) handleEnter(raw json.RawMessage) {
	var payload EnterPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.JWT == "" || payload.PeerID == "" {
		metrics.RoomRejections.WithLabelValues(metrics.ReasonBadToken).Inc()
		c.enqueue(NewErrorEvent(MsgAuthFailed))
		return
	}

	decoded, err := c.core.tokens.Verify(payload.JWT)
	if err != nil {
		c.core.logger.Warn(logging.Realtime, logging.Authentication, "token rejected", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		metrics.RoomRejections.WithLabelValues(metrics.ReasonBadToken).Inc()
		c.enqueue(NewErrorEvent(MsgAuthFailed))
		return
	}

	meetingID := decoded.Claims.Meeting

	if !c.core.registry.TryJoin(meetingID) {
		metrics.RoomRejections.WithLabelValues(metrics.ReasonFull).Inc()
		if err := c.core.publisher.PublishMeetingFull(context.Background(), meetingID); err != nil {
			c.core.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish meeting full event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		c.enqueue(NewErrorEvent(MsgMeetingFull))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	if _, err := c.core.meetings.GetByID(ctx, meetingID); err != nil {
		c.core.registry.Leave(meetingID)

		if errors.Is(err, domain.ErrMeetingExpired) {
			metrics.RoomRejections.WithLabelValues(metrics.ReasonExpired).Inc()
			c.enqueue(NewErrorEvent(MsgMeetingExpired))
			return
		}

		c.core.logger.Error(logging.Mongo, logging.Admission, "meeting lookup failed", map[logging.ExtraKey]any{
			logging.MeetingID:    meetingID,
			logging.ErrorMessage: err.Error(),
		})
		metrics.RoomRejections.WithLabelValues(metrics.ReasonStorageError).Inc()
		c.enqueue(NewErrorEvent(MsgInternalError))
		return
	}

	c.claims = decoded.Claims
	c.peerID = payload.PeerID
	c.setState(StateInRoom)

	c.core.register <- c
	c.enqueue(NewEnterSuccessEvent())

	metrics.RoomEnters.Inc()
	if err := c.core.publisher.PublishPeerEntered(context.Background(), meetingID, c.claims.Username, c.peerID); err != nil {
		c.core.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish peer entered event", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

// handleMessage relays chat verbatim to the other room members, stamped with
// the sender's verified username. The sender never receives an echo.
func (c *Client) handleMessage(raw json.RawMessage) {
	var payload MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		return
	}

	metrics.MessagesRelayed.Inc()
	c.core.broadcast <- &RoomEvent{
		MeetingID: c.claims.Meeting,
		Sender:    c,
		Event:     NewReceivedMessageEvent(payload.Message, c.claims.Username),
	}
}

// handleCall relays the caller's peer id so the other side can dial it over
// the media channel.
func (c *Client) handleCall(raw json.RawMessage) {
	var payload CallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	c.core.broadcast <- &RoomEvent{
		MeetingID: c.claims.Meeting,
		Sender:    c,
		Event:     NewCallRequestEvent(payload.PeerID),
	}
}
