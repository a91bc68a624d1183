package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// CommunityMemberRepository handles database operations for community membership
type CommunityMemberRepository struct {
	db *pgxpool.Pool
}

// NewCommunityMemberRepository creates a new CommunityMemberRepository
func NewCommunityMemberRepository(db *pgxpool.Pool) *CommunityMemberRepository {
	return &CommunityMemberRepository{db: db}
}

// IsMember checks if a user is a member of a specific community
func (r *CommunityMemberRepository) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	query := squirrel.Select("1").
		From("community_members").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error executing query: %w", err)
	}

	return true, nil
}

// Add registers a user as a member of a community
func (r *CommunityMemberRepository) Add(ctx context.Context, communityID, userID int64) (int64, error) {
	query := squirrel.Insert("community_members").
		Columns("community_id", "user_id", "role").
		Values(communityID, userID, "member").
		Suffix("ON CONFLICT ON CONSTRAINT community_members_unique DO NOTHING RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, sql, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT swallowed the insert
			return 0, apperrors.ErrAlreadyMember
		}
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return id, nil
}

// Remove deletes a user's membership of a community
func (r *CommunityMemberRepository) Remove(ctx context.Context, communityID, userID int64) error {
	query := squirrel.Delete("community_members").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotMember
	}

	return nil
}

// CountByCommunity returns the number of members in a community
func (r *CommunityMemberRepository) CountByCommunity(ctx context.Context, communityID int64) (int, error) {
	query := squirrel.Select("COUNT(*)").
		From("community_members").
		Where("community_id = ?", communityID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return count, nil
}
