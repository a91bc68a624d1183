package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/pkg/auth"
)

// eventTimeout bounds the persistence work a single event may trigger.
// A slow store call delays only this event, never other connections.
const eventTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development, in production you should restrict this
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway bridges the authenticated HTTP session into socket identity and
// routes events to the protocol handlers.
type Gateway struct {
	hub       *Hub
	presence  PresenceRegistry
	typing    *TypingRegistry
	dm        *DMHandler
	community *CommunityHandler
	jwt       *auth.JWTService
	logger    zerolog.Logger
}

// NewGateway creates a new Gateway
func NewGateway(
	hub *Hub,
	presence PresenceRegistry,
	typing *TypingRegistry,
	dm *DMHandler,
	community *CommunityHandler,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *Gateway {
	return &Gateway{
		hub:       hub,
		presence:  presence,
		typing:    typing,
		dm:        dm,
		community: community,
		jwt:       jwtService,
		logger:    logger,
	}
}

// HandleConnection authenticates the handshake and upgrades to a websocket.
// The credential travels in the query string (or Authorization header)
// because HttpOnly session cookies are unreadable from browser script; the
// client obtains it from the socket-token endpoint once per attempt. A
// missing or expired credential refuses the connection before any event
// handler runs; there is no in-socket refresh.
func (g *Gateway) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); header != "" {
			token, _ = auth.ExtractBearerToken(header)
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	claims, err := g.jwt.ValidateAndExtractClaims(token)
	if err != nil {
		g.logger.Debug().Err(err).Msg("Socket handshake rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	identity, err := IdentityFromClaims(claims)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Error().
			Err(err).
			Int64("userID", identity.UserID).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		gateway:  g,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		id:       uuid.NewString(),
		identity: identity,
		logger:   g.logger,
	}

	g.hub.Register(client)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	first, err := g.presence.Connect(ctx, identity.UserID, client.id)
	cancel()
	if err != nil {
		g.logger.Error().Err(err).Int64("userID", identity.UserID).Msg("Presence connect failed")
	}
	if first {
		// Exactly one online broadcast per offline-to-online transition
		if frame, err := encodeEvent(EventUserOnline, PresencePayload{UserID: identity.UserID, Online: true}); err == nil {
			g.hub.BroadcastAll(frame)
		}
	}

	go client.writePump()
	go client.readPump()

	g.logger.Info().
		Int64("userID", identity.UserID).
		Str("role", string(identity.Role)).
		Str("connID", client.id).
		Msg("WebSocket connection established")
}

// dispatch routes one inbound event to its protocol handler. Called from the
// connection's read pump, so events from one connection never interleave.
func (g *Gateway) dispatch(c *Client, event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch event.Name {
	case EventJoinConversation:
		var payload ConversationRef
		if !decode(c, event, &payload) {
			return
		}
		g.dm.Join(ctx, c, payload)

	case EventSendMessage:
		var payload SendMessagePayload
		if !decode(c, event, &payload) {
			return
		}
		g.dm.Send(ctx, c, payload)

	case EventLeaveConversation:
		var payload ConversationRef
		if !decode(c, event, &payload) {
			return
		}
		g.dm.Leave(c, payload)

	case EventMarkAsRead:
		var payload ConversationRef
		if !decode(c, event, &payload) {
			return
		}
		g.dm.MarkRead(ctx, c, payload)

	case EventTyping, EventStopTyping:
		var payload ConversationRef
		if !decode(c, event, &payload) {
			return
		}
		g.dm.SetTyping(ctx, c, payload, event.Name == EventTyping)

	case EventJoinCommunity:
		var payload CommunityRef
		if !decode(c, event, &payload) {
			return
		}
		g.community.Join(ctx, c, payload)

	case EventLeaveCommunity:
		var payload CommunityRef
		if !decode(c, event, &payload) {
			return
		}
		g.community.Leave(c, payload)

	case EventCommunitySend:
		var payload CommunitySendPayload
		if !decode(c, event, &payload) {
			return
		}
		g.community.Send(ctx, c, payload)

	case EventCommunityTyping, EventCommunityStopTyped:
		var payload CommunityRef
		if !decode(c, event, &payload) {
			return
		}
		g.community.SetTyping(ctx, c, payload, event.Name == EventCommunityTyping)

	case EventGetMessages:
		var payload GetMessagesPayload
		if !decode(c, event, &payload) {
			return
		}
		g.community.GetMessages(ctx, c, payload)

	default:
		c.EmitError("Unknown event")
	}
}

// decode unmarshals an event payload, emitting a scoped error on failure
func decode(c *Client, event *Event, out interface{}) bool {
	if len(event.Data) == 0 {
		c.EmitError("Missing event payload")
		return false
	}
	if err := json.Unmarshal(event.Data, out); err != nil {
		c.EmitError("Malformed event payload")
		return false
	}
	return true
}

// handleDisconnect runs the cleanup paths when a connection closes: the
// connection leaves every room, community rooms are told about the departure,
// and only when the user's last handle closed are typing flags cleared and
// the offline transition broadcast.
func (g *Gateway) handleDisconnect(c *Client) {
	rooms := g.hub.Unregister(c)
	g.community.HandleDisconnect(c, rooms)

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	last, err := g.presence.Disconnect(ctx, c.identity.UserID, c.id)
	if err != nil {
		g.logger.Error().Err(err).Int64("userID", c.identity.UserID).Msg("Presence disconnect failed")
	}
	if !last {
		// Another device still holds the session; no offline flap
		return
	}

	for _, room := range g.typing.ClearUser(c.identity.UserID) {
		if convID, err := parseRoom(room, "conversation:"); err == nil {
			frame, err := encodeEvent(EventStopTyping, TypingPayload{
				ConversationID: convID,
				UserID:         c.identity.UserID,
				Typing:         false,
			})
			if err == nil {
				g.hub.BroadcastToRoom(room, frame)
			}
			continue
		}
		if commID, err := parseRoom(room, "community:"); err == nil {
			frame, err := encodeEvent(EventCommunityStopTyped, CommunityTypingPayload{
				CommunityID: commID,
				Username:    presenceName(c.identity),
				Role:        string(c.identity.Role),
				Typing:      false,
			})
			if err == nil {
				g.hub.BroadcastToRoom(room, frame)
			}
		}
	}

	if frame, err := encodeEvent(EventUserOffline, PresencePayload{UserID: c.identity.UserID, Online: false}); err == nil {
		g.hub.BroadcastAll(frame)
	}
}
