package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub maps logical rooms to the connections currently joined to them and
// keeps a per-user index so events can target every device of a user.
// Room membership reflects active viewers, not durable participation:
// a user owns their conversations whether or not a connection is joined.
type Hub struct {
	mu sync.RWMutex

	// rooms maps room name to the set of joined clients
	rooms map[string]map[*Client]bool

	// users maps user ID to that user's live connections; this is the
	// personal notification channel
	users map[int64]map[*Client]bool

	logger zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]bool),
		users:  make(map[int64]map[*Client]bool),
		logger: logger,
	}
}

// Register adds a connection to the per-user index
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.identity.UserID
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[*Client]bool)
	}
	h.users[userID][client] = true

	h.logger.Info().
		Int64("userID", userID).
		Str("connID", client.id).
		Msg("Client registered")
}

// Unregister removes the connection from every room and the user index and
// closes its send channel. Returns the rooms the connection was joined to so
// departure notices can be emitted afterwards.
func (h *Hub) Unregister(client *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []string
	for room, members := range h.rooms {
		if members[client] {
			delete(members, client)
			left = append(left, room)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	userID := client.identity.UserID
	if conns, ok := h.users[userID]; ok && conns[client] {
		delete(conns, client)
		client.closeSend()
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}

	h.logger.Info().
		Int64("userID", userID).
		Str("connID", client.id).
		Int("roomsLeft", len(left)).
		Msg("Client unregistered")

	return left
}

// Join adds the connection to a room
func (h *Hub) Join(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// Leave removes the connection from a room. Returns whether it was joined.
func (h *Hub) Leave(room string, client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok || !members[client] {
		return false
	}

	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	return true
}

// HasJoined is the transport-level joined-room predicate, deliberately
// separate from the store's durable membership predicate.
func (h *Hub) HasJoined(room string, client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][client]
}

// RoomSize returns the number of connections joined to a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom sends data to every connection joined to the room
func (h *Hub) BroadcastToRoom(room string, data []byte) {
	h.sendAll(h.roomMembers(room, nil), data)
}

// BroadcastToRoomExcept sends data to every connection in the room except one
func (h *Hub) BroadcastToRoomExcept(room string, skip *Client, data []byte) {
	h.sendAll(h.roomMembers(room, skip), data)
}

// SendToUser sends data to every live connection of a user
func (h *Hub) SendToUser(userID int64, data []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for client := range h.users[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	h.sendAll(targets, data)
}

// BroadcastAll sends data to every registered connection; used for global
// presence transitions.
func (h *Hub) BroadcastAll(data []byte) {
	h.mu.RLock()
	var targets []*Client
	for _, conns := range h.users {
		for client := range conns {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	h.sendAll(targets, data)
}

func (h *Hub) roomMembers(room string, skip *Client) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for client := range members {
		if client != skip {
			targets = append(targets, client)
		}
	}
	return targets
}

func (h *Hub) sendAll(targets []*Client, data []byte) {
	for _, client := range targets {
		if !client.enqueue(data) {
			// Send buffer full or connection closing; drop rather than
			// block the event that triggered the broadcast.
			h.logger.Warn().
				Int64("userID", client.identity.UserID).
				Str("connID", client.id).
				Msg("Dropped message for slow client")
		}
	}
}
