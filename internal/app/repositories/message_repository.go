package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusmind/campusmind/internal/app/models"
)

// MessageRepository handles database operations for direct messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert persists a new message and returns it with the server timestamp
func (r *MessageRepository) Insert(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ConversationID,
		message.SenderID,
		message.ReceiverID,
		message.Content,
	).Scan(&message.ID, &message.IsRead, &message.CreatedAt)

	if err != nil {
		return fmt.Errorf("error creating message: %w", err)
	}

	return nil
}

// MarkRead flips every unread message addressed to readerID in the
// conversation and returns the IDs that changed. Messages inserted after this
// statement runs stay unread; the read boundary is the persisted state at
// execution time.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, readerID int64) ([]int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, read_at = now()
		WHERE conversation_id = $1 AND receiver_id = $2 AND is_read = FALSE
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, conversationID, readerID)
	if err != nil {
		return nil, fmt.Errorf("error marking messages read: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning message id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marked rows: %w", err)
	}

	return ids, nil
}

// UnreadCount returns the number of unread messages addressed to userID in a
// single conversation, computed fresh
func (r *MessageRepository) UnreadCount(ctx context.Context, conversationID, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`, conversationID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting unread messages: %w", err)
	}
	return count, nil
}

// TotalUnread returns the number of unread messages addressed to userID
// across all conversations
func (r *MessageRepository) TotalUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE receiver_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting unread messages: %w", err)
	}
	return count, nil
}

// ListByConversation retrieves messages for a conversation with an optional
// "created before" cursor, newest first
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID int64, before *time.Time, limit int) ([]*models.Message, error) {
	queryBuilder := squirrel.Select(
		"id", "conversation_id", "sender_id", "receiver_id",
		"content", "is_read", "read_at", "created_at",
	).
		From("messages").
		Where("conversation_id = ?", conversationID).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if before != nil {
		queryBuilder = queryBuilder.Where("created_at < ?", *before)
	}

	sql, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var message models.Message
		err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.ReceiverID,
			&message.Content,
			&message.IsRead,
			&message.ReadAt,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message row: %w", err)
		}
		messages = append(messages, &message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}
