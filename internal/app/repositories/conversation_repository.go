package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// ConversationRepository handles database operations for conversations
type ConversationRepository struct {
	db *pgxpool.Pool
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate returns the conversation for a (student, counsellor) pair,
// creating it when absent. The unique constraint on the pair plus ON CONFLICT
// makes concurrent calls converge on a single row.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, studentID, counsellorID, collegeID int64) (*models.Conversation, error) {
	insert := `
		INSERT INTO conversations (college_id, student_id, counsellor_id)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT conversations_pair_unique DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, collegeID, studentID, counsellorID); err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	query := `
		SELECT id, college_id, student_id, counsellor_id, last_message_at, created_at
		FROM conversations
		WHERE student_id = $1 AND counsellor_id = $2
	`
	var conv models.Conversation
	err := r.db.QueryRow(ctx, query, studentID, counsellorID).Scan(
		&conv.ID,
		&conv.CollegeID,
		&conv.StudentID,
		&conv.CounsellorID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return &conv, nil
}

// GetForParticipant returns the conversation iff requesterID is one of the two
// participants. A conversation that exists but does not include the requester
// is reported as not found, indistinguishable from an absent one.
func (r *ConversationRepository) GetForParticipant(ctx context.Context, id, requesterID int64) (*models.Conversation, error) {
	query := `
		SELECT id, college_id, student_id, counsellor_id, last_message_at, created_at
		FROM conversations
		WHERE id = $1 AND (student_id = $2 OR counsellor_id = $2)
	`
	var conv models.Conversation
	err := r.db.QueryRow(ctx, query, id, requesterID).Scan(
		&conv.ID,
		&conv.CollegeID,
		&conv.StudentID,
		&conv.CounsellorID,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return &conv, nil
}

// ListForUser retrieves the user's conversations ordered by recency, each with
// the latest message and the unread count for that user.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID, collegeID int64) ([]*models.ConversationPreview, error) {
	sql, args, err := squirrel.Select(
		"c.id", "c.college_id", "c.student_id", "c.counsellor_id",
		"c.last_message_at", "c.created_at",
		"m.id", "m.sender_id", "m.receiver_id", "m.content", "m.is_read", "m.created_at",
		"COALESCE(u.cnt, 0)",
	).
		From("conversations c").
		LeftJoin(`LATERAL (
			SELECT id, sender_id, receiver_id, content, is_read, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON TRUE`).
		LeftJoin(`LATERAL (
			SELECT COUNT(*) AS cnt FROM messages
			WHERE conversation_id = c.id AND receiver_id = ? AND is_read = FALSE
		) u ON TRUE`, userID).
		Where("(c.student_id = ? OR c.counsellor_id = ?)", userID, userID).
		Where("c.college_id = ?", collegeID).
		OrderBy("c.last_message_at DESC NULLS LAST", "c.created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var previews []*models.ConversationPreview
	for rows.Next() {
		var p models.ConversationPreview
		var msgID, msgSender, msgReceiver *int64
		var msgContent *string
		var msgIsRead *bool
		var msgCreatedAt *time.Time

		err := rows.Scan(
			&p.ID,
			&p.CollegeID,
			&p.StudentID,
			&p.CounsellorID,
			&p.LastMessageAt,
			&p.CreatedAt,
			&msgID,
			&msgSender,
			&msgReceiver,
			&msgContent,
			&msgIsRead,
			&msgCreatedAt,
			&p.UnreadCount,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}

		if msgID != nil {
			p.LastMessage = &models.Message{
				ID:             *msgID,
				ConversationID: p.ID,
				SenderID:       *msgSender,
				ReceiverID:     *msgReceiver,
				Content:        *msgContent,
				IsRead:         *msgIsRead,
				CreatedAt:      *msgCreatedAt,
			}
		}

		previews = append(previews, &p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return previews, nil
}

// TouchLastMessage bumps the recency timestamp after an insert
func (r *ConversationRepository) TouchLastMessage(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE conversations SET last_message_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error updating conversation recency: %w", err)
	}
	return nil
}

// Delete removes a conversation; messages cascade
func (r *ConversationRepository) Delete(ctx context.Context, id, requesterID int64) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1 AND (student_id = $2 OR counsellor_id = $2)`,
		id, requesterID,
	)
	if err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrConversationNotFound
	}
	return nil
}
