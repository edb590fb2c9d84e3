// Package ws implements the realtime meeting channel: a websocket endpoint
// where signed-in peers enter their room, exchange chat, and discover each
// other's media peer ids.
package ws

import (
	"context"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/events"
	"github.com/peermeet/peermeet/internal/infrastructure/logging"
	"github.com/peermeet/peermeet/internal/infrastructure/metrics"
	"github.com/peermeet/peermeet/internal/infrastructure/registry"
	"github.com/peermeet/peermeet/internal/infrastructure/token"
)

// RoomEvent is a broadcast request: deliver Event to every member of the
// meeting's room except Sender.
type RoomEvent struct {
	MeetingID string
	Sender    *Client
	Event     *Event
}

// Core is the hub goroutine behind every websocket connection. Register,
// unregister and broadcast all funnel through Run's select loop, which keeps
// room mutation and fan-out ordered without per-handler locking.
type Core struct {
	roomManager *RoomManager

	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomEvent

	tokens    *token.Codec
	meetings  domain.MeetingRepository
	registry  *registry.Registry
	publisher *events.MeetingPublisher
	logger    logging.Logger
}

func NewCore(
	tokens *token.Codec,
	meetings domain.MeetingRepository,
	occupancy *registry.Registry,
	publisher *events.MeetingPublisher,
	logger logging.Logger,
) *Core {
	return &Core{
		roomManager: NewRoomManager(),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *RoomEvent, 256),
		tokens:      tokens,
		meetings:    meetings,
		registry:    occupancy,
		publisher:   publisher,
		logger:      logger,
	}
}

func (c *Core) RoomManager() *RoomManager {
	return c.roomManager
}

// Run processes hub traffic until ctx is cancelled. Start it once, as a
// goroutine, before serving the websocket endpoint.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case client := <-c.register:
			c.roomManager.AddClient(client.claims.Meeting, client)
			metrics.LiveConnections.Inc()

			c.logger.Info(logging.Realtime, logging.Admission, "peer entered meeting", map[logging.ExtraKey]any{
				logging.MeetingID: client.claims.Meeting,
				logging.Username:  client.claims.Username,
				logging.PeerID:    client.peerID,
			})

		case client := <-c.unregister:
			c.drop(client)

		case event := <-c.broadcast:
			c.roomManager.BroadcastToRoom(event.MeetingID, event.Sender, event.Event)

		case <-ctx.Done():
			return
		}
	}
}

// drop tears a client down. Occupancy is only released for clients that made
// it into a room; a second drop of the same client is a no-op because the
// state has already moved to disconnected.
func (c *Core) drop(client *Client) {
	if client.State() == StateDisconnected {
		return
	}

	if client.State() == StateInRoom {
		meetingID := client.claims.Meeting

		c.roomManager.RemoveClient(meetingID, client)
		c.roomManager.BroadcastToRoom(meetingID, client, NewPeerDisconnectedEvent(client.peerID))
		c.registry.Leave(meetingID)
		metrics.LiveConnections.Dec()

		if err := c.publisher.PublishPeerDisconnected(context.Background(), meetingID, client.peerID); err != nil {
			c.logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish peer disconnected event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}

		c.logger.Info(logging.Realtime, logging.Admission, "peer left meeting", map[logging.ExtraKey]any{
			logging.MeetingID: meetingID,
			logging.PeerID:    client.peerID,
		})
	}

	client.setState(StateDisconnected)
	close(client.send)
}
