package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum event size allowed from peer
	maxEventSize = 64 * 1024

	// Outbound buffer per connection
	sendBufferSize = 256
)

// Client is one live socket connection with its verified identity attached
type Client struct {
	gateway *Gateway

	// The websocket connection; nil in tests that exercise handlers directly
	conn *websocket.Conn

	// Buffered channel of outbound frames
	send chan []byte

	// Unique connection handle, the unit the presence registry counts
	id string

	// Immutable verified identity for the lifetime of the connection
	identity Identity

	mu     sync.Mutex
	closed bool

	logger zerolog.Logger
}

// enqueue queues an outbound frame without blocking. Returns false when the
// connection is closing or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend marks the connection closed and closes the outbound channel once
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Emit sends a named event with a payload to this connection only
func (c *Client) Emit(name string, payload interface{}) {
	data, err := encodeEvent(name, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", name).Msg("Failed to encode event")
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn().Str("event", name).Str("connID", c.id).Msg("Dropped event for slow client")
	}
}

// EmitError sends a scoped error event to this connection only; failed
// actions are never broadcast to the room.
func (c *Client) EmitError(message string) {
	c.Emit(EventError, ErrorPayload{Message: message})
}

// readPump pumps events from the websocket connection into the gateway.
// Events from one connection are dispatched in order, one at a time.
func (c *Client) readPump() {
	defer func() {
		c.gateway.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxEventSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().
					Int64("userID", c.identity.UserID).
					Str("connID", c.id).
					Msg("WebSocket closed normally")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().
					Err(err).
					Int64("userID", c.identity.UserID).
					Str("connID", c.id).
					Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().
					Err(err).
					Int64("userID", c.identity.UserID).
					Str("connID", c.id).
					Msg("WebSocket read error")
			}
			break
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.logger.Debug().
				Err(err).
				Int64("userID", c.identity.UserID).
				Msg("Failed to unmarshal client event")
			c.EmitError("Malformed event")
			continue
		}

		c.gateway.dispatch(c, &event)
	}
}

// writePump pumps frames from the send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
