package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/app/repositories"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// ChatService handles direct conversations between students and counsellors.
// It doubles as the persistence collaborator of the socket layer's
// direct-message protocol.
type ChatService struct {
	conversationRepo *repositories.ConversationRepository
	messageRepo      *repositories.MessageRepository
	userRepo         *repositories.UserRepository
	logger           zerolog.Logger
}

// NewChatService creates a new ChatService
func NewChatService(
	conversationRepo *repositories.ConversationRepository,
	messageRepo *repositories.MessageRepository,
	userRepo *repositories.UserRepository,
	logger zerolog.Logger,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		logger:           logger,
	}
}

// StartConversation returns the conversation between the caller and the peer,
// creating it when absent. A conversation always pairs one student with one
// counsellor of the same college; any other pairing is rejected.
func (s *ChatService) StartConversation(ctx context.Context, callerID int64, callerRole models.RoleType, collegeID, peerID int64) (*models.Conversation, error) {
	peer, err := s.userRepo.GetByID(ctx, peerID)
	if err != nil {
		return nil, err
	}
	if peer.CollegeID != collegeID {
		// Same answer as an absent user so cross-tenant ids never leak
		return nil, apperrors.ErrUserNotFound
	}

	var studentID, counsellorID int64
	switch {
	case callerRole == models.RoleStudent && peer.Role == models.RoleCounsellor:
		studentID, counsellorID = callerID, peerID
	case callerRole == models.RoleCounsellor && peer.Role == models.RoleStudent:
		studentID, counsellorID = peerID, callerID
	default:
		return nil, apperrors.NewValidationError("Conversations pair a student with a counsellor")
	}

	conv, err := s.conversationRepo.GetOrCreate(ctx, studentID, counsellorID, collegeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the caller's conversations ordered by recency,
// each with its last message and the caller's unread count.
func (s *ChatService) ListConversations(ctx context.Context, userID, collegeID int64) ([]*models.ConversationPreview, error) {
	return s.conversationRepo.ListForUser(ctx, userID, collegeID)
}

// History returns a backward page of messages; requesterID must be a
// participant.
func (s *ChatService) History(ctx context.Context, conversationID, requesterID int64, before *time.Time, limit int) ([]*models.Message, error) {
	if _, err := s.conversationRepo.GetForParticipant(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByConversation(ctx, conversationID, before, limit)
}

// DeleteConversation removes a conversation and its messages. Only a
// participant can delete; a non-participant gets the same answer as an
// absent conversation.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID, requesterID int64) error {
	return s.conversationRepo.Delete(ctx, conversationID, requesterID)
}

// GetConversation implements the socket layer's participant-gated lookup
func (s *ChatService) GetConversation(ctx context.Context, id, requesterID int64) (*models.Conversation, error) {
	return s.conversationRepo.GetForParticipant(ctx, id, requesterID)
}

// InsertMessage persists a direct message and advances the conversation's
// recency ordering in one step.
func (s *ChatService) InsertMessage(ctx context.Context, conversationID, senderID, receiverID int64, content string) (*models.Message, error) {
	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
	}
	if err := s.messageRepo.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := s.conversationRepo.TouchLastMessage(ctx, conversationID); err != nil {
		// Ordering drifts until the next message; the message itself is safe
		s.logger.Warn().Err(err).Int64("conversationID", conversationID).Msg("Failed to touch conversation recency")
	}

	return message, nil
}

// MarkRead marks everything addressed to readerID in the conversation as read
func (s *ChatService) MarkRead(ctx context.Context, conversationID, readerID int64) ([]int64, error) {
	return s.messageRepo.MarkRead(ctx, conversationID, readerID)
}

// UnreadCount recomputes the per-conversation unread counter from the store
func (s *ChatService) UnreadCount(ctx context.Context, conversationID, userID int64) (int, error) {
	return s.messageRepo.UnreadCount(ctx, conversationID, userID)
}

// TotalUnread recomputes the user's unread counter across all conversations
func (s *ChatService) TotalUnread(ctx context.Context, userID int64) (int, error) {
	return s.messageRepo.TotalUnread(ctx, userID)
}
