package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusmind/campusmind/internal/app/models"
)

// CommunityMessageRepository handles database operations for community messages
type CommunityMessageRepository struct {
	db *pgxpool.Pool
}

// NewCommunityMessageRepository creates a new CommunityMessageRepository
func NewCommunityMessageRepository(db *pgxpool.Pool) *CommunityMessageRepository {
	return &CommunityMessageRepository{db: db}
}

// Insert persists a new community message and returns it with the server timestamp
func (r *CommunityMessageRepository) Insert(ctx context.Context, message *models.CommunityMessage) error {
	query := `
		INSERT INTO community_messages (community_id, sender_id, sender_role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.CommunityID,
		message.SenderID,
		message.SenderRole,
		message.Content,
	).Scan(&message.ID, &message.CreatedAt)

	if err != nil {
		return fmt.Errorf("error creating community message: %w", err)
	}

	return nil
}

// ListBefore retrieves a reverse-chronological page of messages for a
// community. A beforeID of 0 starts from the newest message.
func (r *CommunityMessageRepository) ListBefore(ctx context.Context, communityID int64, limit int, beforeID int64) ([]*models.CommunityMessage, error) {
	queryBuilder := squirrel.Select(
		"id", "community_id", "sender_id", "sender_role", "content", "created_at",
	).
		From("community_messages").
		Where("community_id = ?", communityID).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	if beforeID > 0 {
		queryBuilder = queryBuilder.Where("id < ?", beforeID)
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

	var messages []*models.CommunityMessage
	for rows.Next() {
		var message models.CommunityMessage
		err := rows.Scan(
			&message.ID,
			&message.CommunityID,
			&message.SenderID,
			&message.SenderRole,
			&message.Content,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning community message row: %w", err)
		}
		messages = append(messages, &message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating community message rows: %w", err)
	}

	return messages, nil
}
