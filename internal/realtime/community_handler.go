package realtime

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// CommunityHandler implements the community protocol: many-to-many rooms with
// tenant isolation, admin bypass, anonymized student identities and a
// join-before-send precondition.
type CommunityHandler struct {
	hub    *Hub
	typing *TypingRegistry
	store  CommunityStore
	logger zerolog.Logger

	maxMessageLength int
	maxPageSize      int
}

// NewCommunityHandler creates a new CommunityHandler
func NewCommunityHandler(hub *Hub, typing *TypingRegistry, store CommunityStore, maxMessageLength, maxPageSize int, logger zerolog.Logger) *CommunityHandler {
	if maxMessageLength <= 0 {
		maxMessageLength = 2000
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &CommunityHandler{
		hub:              hub,
		typing:           typing,
		store:            store,
		logger:           logger,
		maxMessageLength: maxMessageLength,
		maxPageSize:      maxPageSize,
	}
}

func (h *CommunityHandler) fail(c *Client, err error, action string) {
	message, expected := clientMessage(err)
	if !expected {
		h.logger.Error().
			Err(err).
			Str("action", action).
			Int64("userID", c.identity.UserID).
			Msg("Community action failed")
	}
	c.EmitError(message)
}

// presenceName is the identity shown in join/leave/presence events: students
// are always "anonymous", everyone else is shown by role, never by name.
func presenceName(identity Identity) string {
	if identity.Role == models.RoleStudent {
		return "anonymous"
	}
	return string(identity.Role)
}

// authorize loads the community and enforces tenant isolation and
// membership. Cross-tenant callers get the same answer as callers of an
// absent community, with no metadata attached, so existence never leaks.
func (h *CommunityHandler) authorize(ctx context.Context, c *Client, communityID int64) (*models.Community, error) {
	community, err := h.store.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	if community.CollegeID != c.identity.CollegeID {
		return nil, apperrors.ErrPermissionDenied
	}

	// Admins may enter any community of their own college without a
	// membership row
	if !c.identity.IsAdmin() {
		member, err := h.store.IsMember(ctx, communityID, c.identity.UserID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperrors.ErrNotMember
		}
	}

	return community, nil
}

// Join verifies tenancy and membership (or admin role), joins the room and
// announces the arrival with an anonymized identity.
func (h *CommunityHandler) Join(ctx context.Context, c *Client, payload CommunityRef) {
	community, err := h.authorize(ctx, c, payload.CommunityID)
	if err != nil {
		h.fail(c, err, "join-community")
		return
	}

	room := communityRoom(community.ID)
	h.hub.Join(room, c)
	c.Emit(EventJoinedCommunity, CommunityRef{CommunityID: community.ID})

	frame, err := encodeEvent(EventUserJoined, CommunityPresencePayload{
		CommunityID: community.ID,
		Username:    presenceName(c.identity),
		Role:        string(c.identity.Role),
	})
	if err == nil {
		h.hub.BroadcastToRoomExcept(room, c, frame)
	}
}

// Leave removes the connection from the room, clears typing state and
// notifies the remaining members of the (anonymized) departure.
func (h *CommunityHandler) Leave(c *Client, payload CommunityRef) {
	room := communityRoom(payload.CommunityID)
	userID := c.identity.UserID

	h.typing.Stop(room, userID)
	if !h.hub.Leave(room, c) {
		return
	}

	h.announceDeparture(payload.CommunityID, c)
}

// announceDeparture broadcasts user-left to a room the client is no longer in
func (h *CommunityHandler) announceDeparture(communityID int64, c *Client) {
	frame, err := encodeEvent(EventUserLeft, CommunityPresencePayload{
		CommunityID: communityID,
		Username:    presenceName(c.identity),
		Role:        string(c.identity.Role),
	})
	if err == nil {
		h.hub.BroadcastToRoom(communityRoom(communityID), frame)
	}
}

// Send requires the sender to be joined to this room right now; durable
// membership alone is not enough. The display identity is resolved at
// broadcast time so handle changes apply retroactively.
func (h *CommunityHandler) Send(ctx context.Context, c *Client, payload CommunitySendPayload) {
	room := communityRoom(payload.CommunityID)
	senderID := c.identity.UserID

	if !h.hub.HasJoined(room, c) {
		c.EmitError("Join the community before sending messages")
		return
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		c.EmitError("Message cannot be empty")
		return
	}
	if utf8.RuneCountInString(content) > h.maxMessageLength {
		c.EmitError("Message is too long")
		return
	}

	// The sender stopped typing by sending, even if the insert fails
	if h.typing.Stop(room, senderID) {
		h.notifyTyping(ctx, room, c, payload.CommunityID, false)
	}

	message, err := h.store.InsertMessage(ctx, payload.CommunityID, senderID, c.identity.Role, content)
	if err != nil {
		h.fail(c, err, "send-message")
		return
	}

	out, err := h.messagePayload(ctx, message)
	if err != nil {
		h.fail(c, err, "send-message")
		return
	}

	if frame, err := encodeEvent(EventCommunityMessage, out); err == nil {
		h.hub.BroadcastToRoom(room, frame)
	}
}

// messagePayload resolves the displayable identity for a stored message.
// Students surface only their anonymous handle; their user id is withheld.
func (h *CommunityHandler) messagePayload(ctx context.Context, message *models.CommunityMessage) (*CommunityMessagePayload, error) {
	name, err := h.store.ResolveDisplayName(ctx, message.SenderID, message.SenderRole)
	if err != nil {
		return nil, err
	}

	payload := &CommunityMessagePayload{
		ID:          message.ID,
		CommunityID: message.CommunityID,
		SenderRole:  string(message.SenderRole),
		Content:     message.Content,
		CreatedAt:   message.CreatedAt,
	}

	if message.SenderRole == models.RoleStudent {
		payload.AnonymousUsername = name
	} else {
		payload.SenderID = message.SenderID
		payload.Username = name
	}

	return payload, nil
}

// SetTyping mutates the typing registry and notifies the room with the
// per-event resolved display identity.
func (h *CommunityHandler) SetTyping(ctx context.Context, c *Client, payload CommunityRef, typing bool) {
	room := communityRoom(payload.CommunityID)
	userID := c.identity.UserID

	if !h.hub.HasJoined(room, c) {
		c.EmitError("Join the community first")
		return
	}

	var changed bool
	if typing {
		changed = h.typing.Start(room, userID)
	} else {
		changed = h.typing.Stop(room, userID)
	}
	if !changed {
		return
	}

	h.notifyTyping(ctx, room, c, payload.CommunityID, typing)
}

func (h *CommunityHandler) notifyTyping(ctx context.Context, room string, c *Client, communityID int64, typing bool) {
	// Display rule matches send-message: resolved per event
	name, err := h.store.ResolveDisplayName(ctx, c.identity.UserID, c.identity.Role)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", c.identity.UserID).Msg("Failed to resolve display name")
		name = presenceName(c.identity)
	}

	event := EventCommunityTyping
	if !typing {
		event = EventCommunityStopTyped
	}
	frame, err := encodeEvent(event, CommunityTypingPayload{
		CommunityID: communityID,
		Username:    name,
		Role:        string(c.identity.Role),
		Typing:      typing,
	})
	if err == nil {
		h.hub.BroadcastToRoomExcept(room, c, frame)
	}
}

// GetMessages returns a backward page of history, gated by the same
// join-or-admin rule as sending.
func (h *CommunityHandler) GetMessages(ctx context.Context, c *Client, payload GetMessagesPayload) {
	room := communityRoom(payload.CommunityID)

	if !h.hub.HasJoined(room, c) {
		// Admins of the community's college may read history without an
		// explicit join
		if _, err := h.authorize(ctx, c, payload.CommunityID); err != nil || !c.identity.IsAdmin() {
			if err == nil {
				err = apperrors.ErrNotMember
			}
			h.fail(c, err, "get-messages")
			return
		}
	}

	limit := payload.Limit
	if limit <= 0 || limit > h.maxPageSize {
		limit = 50
	}

	// Fetch one extra row to report whether older history remains
	stored, err := h.store.ListMessages(ctx, payload.CommunityID, limit+1, payload.BeforeID)
	if err != nil {
		h.fail(c, err, "get-messages")
		return
	}

	hasMore := len(stored) > limit
	if hasMore {
		stored = stored[:limit]
	}

	messages := make([]*CommunityMessagePayload, 0, len(stored))
	for _, message := range stored {
		out, err := h.messagePayload(ctx, message)
		if err != nil {
			h.fail(c, err, "get-messages")
			return
		}
		messages = append(messages, out)
	}

	c.Emit(EventMessages, CommunityHistoryPayload{
		CommunityID: payload.CommunityID,
		Messages:    messages,
		HasMore:     hasMore,
	})
}

// HandleDisconnect notifies each community room the connection was joined to
// of the departure, without requiring an explicit leave event first.
func (h *CommunityHandler) HandleDisconnect(c *Client, rooms []string) {
	for _, room := range rooms {
		var communityID int64
		if n, err := parseRoom(room, "community:"); err == nil {
			communityID = n
		} else {
			continue
		}
		h.announceDeparture(communityID, c)
	}
}
