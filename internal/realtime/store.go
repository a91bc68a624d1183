package realtime

import (
	"context"

	"github.com/campusmind/campusmind/internal/app/models"
)

// DirectStore is the persistence collaborator for the direct-message
// protocol. Every call is a suspension point; the protocol never caches
// results across events.
type DirectStore interface {
	// GetConversation returns the conversation iff requesterID is a
	// participant; otherwise apperrors.ErrConversationNotFound. Callers
	// cannot distinguish "absent" from "exists but forbidden".
	GetConversation(ctx context.Context, id, requesterID int64) (*models.Conversation, error)

	// InsertMessage persists a message and returns it with the server
	// timestamp assigned.
	InsertMessage(ctx context.Context, conversationID, senderID, receiverID int64, content string) (*models.Message, error)

	// MarkRead marks all unread messages addressed to readerID in the
	// conversation; returns the IDs that changed.
	MarkRead(ctx context.Context, conversationID, readerID int64) ([]int64, error)

	// UnreadCount is computed fresh from the store, never cached
	UnreadCount(ctx context.Context, conversationID, userID int64) (int, error)

	// TotalUnread is the user's unread count across all conversations
	TotalUnread(ctx context.Context, userID int64) (int, error)
}

// CommunityStore is the persistence collaborator for the community protocol
type CommunityStore interface {
	GetCommunity(ctx context.Context, id int64) (*models.Community, error)

	// IsMember is the durable membership predicate, distinct from the
	// transport-level joined-room predicate held by the hub.
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)

	InsertMessage(ctx context.Context, communityID, senderID int64, senderRole models.RoleType, content string) (*models.CommunityMessage, error)

	// ListMessages returns a reverse-chronological page; beforeID of 0
	// starts from the newest message.
	ListMessages(ctx context.Context, communityID int64, limit int, beforeID int64) ([]*models.CommunityMessage, error)

	// ResolveDisplayName returns the anonymous handle for students and the
	// real name for everyone else. Resolved per event, never stored.
	ResolveDisplayName(ctx context.Context, userID int64, role models.RoleType) (string, error)
}
