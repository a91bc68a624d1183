package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/db"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// CommunityRepository handles database operations for communities
type CommunityRepository struct {
	db *pgxpool.Pool
}

// NewCommunityRepository creates a new CommunityRepository
func NewCommunityRepository(db *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// CreateWithOwner inserts a community and its creator's membership in one
// transaction; a community never exists without its owner as a member.
func (r *CommunityRepository) CreateWithOwner(ctx context.Context, community *models.Community) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO communities (college_id, title, description, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`,
			community.CollegeID,
			community.Title,
			community.Description,
			community.CreatedBy,
		).Scan(&community.ID, &community.CreatedAt, &community.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error creating community: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO community_members (community_id, user_id, role)
			VALUES ($1, $2, 'owner')
		`, community.ID, community.CreatedBy)
		if err != nil {
			return fmt.Errorf("error adding community owner: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a community by its ID
func (r *CommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	query := `
		SELECT id, college_id, title, description, created_by, created_at, updated_at
		FROM communities
		WHERE id = $1
	`

	var community models.Community
	err := r.db.QueryRow(ctx, query, id).Scan(
		&community.ID,
		&community.CollegeID,
		&community.Title,
		&community.Description,
		&community.CreatedBy,
		&community.CreatedAt,
		&community.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommunityNotFound
		}
		return nil, fmt.Errorf("error retrieving community: %w", err)
	}

	return &community, nil
}

// ListByCollege retrieves communities for a college with member counts,
// optionally filtered by a title search
func (r *CommunityRepository) ListByCollege(ctx context.Context, collegeID int64, search string) ([]*models.Community, error) {
	queryBuilder := squirrel.Select(
		"c.id", "c.college_id", "c.title", "c.description",
		"c.created_by", "c.created_at", "c.updated_at",
		"COUNT(cm.id)",
	).
		From("communities c").
		LeftJoin("community_members cm ON cm.community_id = c.id").
		Where("c.college_id = ?", collegeID).
		GroupBy("c.id").
		OrderBy("c.created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if search != "" {
		queryBuilder = queryBuilder.Where("c.title ILIKE ?", "%"+search+"%")
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

	var communities []*models.Community
	for rows.Next() {
		var community models.Community
		err := rows.Scan(
			&community.ID,
			&community.CollegeID,
			&community.Title,
			&community.Description,
			&community.CreatedBy,
			&community.CreatedAt,
			&community.UpdatedAt,
			&community.MemberCount,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning community row: %w", err)
		}
		communities = append(communities, &community)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating community rows: %w", err)
	}

	return communities, nil
}
