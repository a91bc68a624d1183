package realtime

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
)

// DMHandler implements the direct-message protocol: join with read-after-join,
// send with fresh unread propagation, typing indicators and read receipts.
type DMHandler struct {
	hub    *Hub
	typing *TypingRegistry
	store  DirectStore
	logger zerolog.Logger
}

// NewDMHandler creates a new DMHandler
func NewDMHandler(hub *Hub, typing *TypingRegistry, store DirectStore, logger zerolog.Logger) *DMHandler {
	return &DMHandler{
		hub:    hub,
		typing: typing,
		store:  store,
		logger: logger,
	}
}

// fail converts an error into a connection-scoped error event. Collaborator
// failures are logged in full here and reach the client as a generic message.
func (h *DMHandler) fail(c *Client, err error, action string) {
	message, expected := clientMessage(err)
	if !expected {
		h.logger.Error().
			Err(err).
			Str("action", action).
			Int64("userID", c.identity.UserID).
			Msg("Direct-message action failed")
	}
	c.EmitError(message)
}

// Join verifies the caller is a participant, joins the conversation room and
// runs the read-after-join protocol: opening a conversation implies reading it.
func (h *DMHandler) Join(ctx context.Context, c *Client, payload ConversationRef) {
	conv, err := h.store.GetConversation(ctx, payload.ConversationID, c.identity.UserID)
	if err != nil {
		h.fail(c, err, "join_conversation")
		return
	}

	h.hub.Join(conversationRoom(conv.ID), c)
	c.Emit(EventJoinedConversation, JoinedConversationPayload{ConversationID: conv.ID})

	h.markConversationRead(ctx, c, conv)
}

// MarkRead is the explicit client-triggered equivalent of the join-time
// auto-read, with the same notification contract.
func (h *DMHandler) MarkRead(ctx context.Context, c *Client, payload ConversationRef) {
	conv, err := h.store.GetConversation(ctx, payload.ConversationID, c.identity.UserID)
	if err != nil {
		h.fail(c, err, "mark_as_read")
		return
	}

	h.markConversationRead(ctx, c, conv)
}

// markConversationRead marks everything addressed to the caller as read,
// notifies the other participant and pushes the caller's recomputed unread
// counter when it changed. Messages inserted after MarkRead computes its
// boundary stay unread; that is the intended read-boundary semantics.
func (h *DMHandler) markConversationRead(ctx context.Context, c *Client, conv *models.Conversation) {
	readerID := c.identity.UserID

	changed, err := h.store.MarkRead(ctx, conv.ID, readerID)
	if err != nil {
		h.fail(c, err, "mark_read")
		return
	}
	if len(changed) == 0 {
		return
	}

	// The other participant sees the delivery state flip
	receipt, err := encodeEvent(EventMessagesRead, MessagesReadPayload{
		ConversationID: conv.ID,
		ReaderID:       readerID,
		MessageIDs:     changed,
	})
	if err == nil {
		h.hub.SendToUser(conv.OtherParticipant(readerID), receipt)
	}

	// The reader's own badge recomputes from the store
	h.pushUnread(ctx, c, conv.ID, readerID)
}

// Send validates, persists and broadcasts a direct message, clears the
// sender's typing flag and notifies the receiver's personal channel with a
// freshly computed unread count.
func (h *DMHandler) Send(ctx context.Context, c *Client, payload SendMessagePayload) {
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		c.EmitError("Message cannot be empty")
		return
	}

	conv, err := h.store.GetConversation(ctx, payload.ConversationID, c.identity.UserID)
	if err != nil {
		h.fail(c, err, "send_message")
		return
	}

	room := conversationRoom(conv.ID)
	senderID := c.identity.UserID
	receiverID := conv.OtherParticipant(senderID)

	// The sender stopped typing by sending, whether or not the insert
	// succeeds below.
	if h.typing.Stop(room, senderID) {
		h.notifyTyping(room, c, conv.ID, senderID, false)
	}

	message, err := h.store.InsertMessage(ctx, conv.ID, senderID, receiverID, content)
	if err != nil {
		h.fail(c, err, "send_message")
		return
	}

	// Everyone viewing the conversation gets the message itself
	if frame, err := encodeEvent(EventNewMessage, message); err == nil {
		h.hub.BroadcastToRoom(room, frame)
	}

	// The receiver is informed even when not viewing this conversation;
	// counts come fresh from the store so client state can never drift.
	unread, err := h.store.UnreadCount(ctx, conv.ID, receiverID)
	if err != nil {
		h.logger.Error().Err(err).Int64("conversationID", conv.ID).Msg("Failed to compute unread count")
		return
	}
	total, err := h.store.TotalUnread(ctx, receiverID)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", receiverID).Msg("Failed to compute total unread")
		return
	}

	notice, err := encodeEvent(EventMessageNotice, MessageNoticePayload{
		Message:     message,
		UnreadCount: unread,
		TotalUnread: total,
	})
	if err == nil {
		h.hub.SendToUser(receiverID, notice)
	}
}

// SetTyping mutates the typing registry and notifies the other participant.
// No persistence is involved.
func (h *DMHandler) SetTyping(ctx context.Context, c *Client, payload ConversationRef, typing bool) {
	conv, err := h.store.GetConversation(ctx, payload.ConversationID, c.identity.UserID)
	if err != nil {
		h.fail(c, err, "typing")
		return
	}

	room := conversationRoom(conv.ID)
	userID := c.identity.UserID

	var changed bool
	if typing {
		changed = h.typing.Start(room, userID)
	} else {
		changed = h.typing.Stop(room, userID)
	}
	if !changed {
		return
	}

	h.notifyTyping(room, c, conv.ID, userID, typing)
}

// Leave removes the connection from the conversation room and clears the
// caller's typing flag there.
func (h *DMHandler) Leave(c *Client, payload ConversationRef) {
	room := conversationRoom(payload.ConversationID)
	userID := c.identity.UserID

	if h.typing.Stop(room, userID) {
		h.notifyTyping(room, c, payload.ConversationID, userID, false)
	}
	h.hub.Leave(room, c)
}

func (h *DMHandler) notifyTyping(room string, c *Client, conversationID, userID int64, typing bool) {
	event := EventTyping
	if !typing {
		event = EventStopTyping
	}
	frame, err := encodeEvent(event, TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Typing:         typing,
	})
	if err != nil {
		return
	}
	h.hub.BroadcastToRoomExcept(room, c, frame)
}

// pushUnread recomputes and pushes the user's unread counters for a
// conversation to all their connections
func (h *DMHandler) pushUnread(ctx context.Context, c *Client, conversationID, userID int64) {
	unread, err := h.store.UnreadCount(ctx, conversationID, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("conversationID", conversationID).Msg("Failed to compute unread count")
		return
	}
	total, err := h.store.TotalUnread(ctx, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to compute total unread")
		return
	}

	frame, err := encodeEvent(EventUnreadCount, UnreadCountPayload{
		ConversationID: conversationID,
		Count:          unread,
		Total:          total,
	})
	if err == nil {
		h.hub.SendToUser(userID, frame)
	}
}
