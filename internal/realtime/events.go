package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusmind/campusmind/internal/app/models"
)

// Direct-message protocol events
const (
	EventJoinConversation   = "join_conversation"
	EventJoinedConversation = "joined_conversation"
	EventLeaveConversation  = "leave_conversation"
	EventSendMessage        = "send_message"
	EventNewMessage         = "new_message"
	EventTyping             = "typing"
	EventStopTyping         = "stop_typing"
	EventMarkAsRead         = "mark_as_read"
	EventMessagesRead       = "messages_read"
	EventUnreadCount        = "unread_count"
	EventMessageNotice      = "message_notification"
	EventUserOnline         = "user_online"
	EventUserOffline        = "user_offline"
	EventError              = "error"
)

// Community protocol events. Kebab-case keeps the namespace disjoint from
// direct messaging.
const (
	EventJoinCommunity      = "join-community"
	EventJoinedCommunity    = "joined-community"
	EventLeaveCommunity     = "leave-community"
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventCommunitySend      = "send-message"
	EventCommunityMessage   = "new-message"
	EventCommunityTyping    = "typing-community"
	EventCommunityStopTyped = "stop-typing-community"
	EventGetMessages        = "get-messages"
	EventMessages           = "messages"
)

// Event is the wire envelope: an event name plus a JSON payload
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// encodeEvent marshals an outbound event envelope
func encodeEvent(name string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", name, err)
		}
		data = raw
	}
	return json.Marshal(Event{Name: name, Data: data})
}

// Inbound payloads

type ConversationRef struct {
	ConversationID int64 `json:"conversationId"`
}

type SendMessagePayload struct {
	ConversationID int64  `json:"conversationId"`
	Content        string `json:"content"`
}

type CommunityRef struct {
	CommunityID int64 `json:"communityId"`
}

type CommunitySendPayload struct {
	CommunityID int64  `json:"communityId"`
	Content     string `json:"content"`
}

type GetMessagesPayload struct {
	CommunityID int64 `json:"communityId"`
	Limit       int   `json:"limit"`
	BeforeID    int64 `json:"beforeId"`
}

// Outbound payloads

type JoinedConversationPayload struct {
	ConversationID int64 `json:"conversationId"`
}

type MessagesReadPayload struct {
	ConversationID int64   `json:"conversationId"`
	ReaderID       int64   `json:"readerId"`
	MessageIDs     []int64 `json:"messageIds"`
}

type UnreadCountPayload struct {
	ConversationID int64 `json:"conversationId"`
	Count          int   `json:"count"`
	Total          int   `json:"total"`
}

type TypingPayload struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
	Typing         bool  `json:"typing"`
}

type MessageNoticePayload struct {
	Message     *models.Message `json:"message"`
	UnreadCount int             `json:"unreadCount"`
	TotalUnread int             `json:"totalUnread"`
}

type PresencePayload struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}

// CommunityPresencePayload announces a join/leave inside a community room.
// Username carries the anonymized identity: "anonymous" for students, the
// role label for everyone else. Real names never appear at presence level.
type CommunityPresencePayload struct {
	CommunityID int64  `json:"communityId"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// CommunityTypingPayload carries the per-event resolved display name
type CommunityTypingPayload struct {
	CommunityID int64  `json:"communityId"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	Typing      bool   `json:"typing"`
}

// CommunityMessagePayload is a broadcast community message. SenderID is only
// populated for non-student senders; students are identified solely by their
// anonymous handle.
type CommunityMessagePayload struct {
	ID                int64     `json:"id"`
	CommunityID       int64     `json:"communityId"`
	SenderID          int64     `json:"senderId,omitempty"`
	SenderRole        string    `json:"senderRole"`
	Username          string    `json:"username,omitempty"`
	AnonymousUsername string    `json:"anonymousUsername,omitempty"`
	Content           string    `json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
}

type CommunityHistoryPayload struct {
	CommunityID int64                      `json:"communityId"`
	Messages    []*CommunityMessagePayload `json:"messages"`
	HasMore     bool                       `json:"hasMore"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
