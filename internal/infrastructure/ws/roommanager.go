package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// RoomManager owns the meeting-id -> member-set map and the HTTP upgrader.
// Membership here is presence only; admission accounting lives in the
// occupancy registry.
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]bool
	upgrader websocket.Upgrader
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from this same process; tokens are
			// verified per connection, so origin is not the auth boundary.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (m *RoomManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return m.upgrader.Upgrade(w, r, nil)
}

func (m *RoomManager) AddClient(roomID string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		room = make(map[*Client]bool)
		m.rooms[roomID] = room
	}
	room[client] = true
}

func (m *RoomManager) RemoveClient(roomID string, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return
	}

	delete(room, client)
	if len(room) == 0 {
		delete(m.rooms, roomID)
	}
}

// BroadcastToRoom delivers the event to every member of the room except the
// sender. A nil sender reaches everyone.
func (m *RoomManager) BroadcastToRoom(roomID string, sender *Client, event *Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.rooms[roomID] {
		if client == sender {
			continue
		}
		client.enqueue(event)
	}
}

func (m *RoomManager) RoomSize(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[roomID])
}
