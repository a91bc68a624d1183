package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, college_id, email, password, first_name, last_name, role,
	anonymous_name, is_active, last_login_at, created_at, updated_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.CollegeID,
		&user.Email,
		&user.Password,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.AnonymousName,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}

// ResolveDisplayName returns the name shown for a user in community contexts:
// the persistent anonymous handle for students, the real name otherwise.
// This is the single place where the anonymity rule lives.
func (r *UserRepository) ResolveDisplayName(ctx context.Context, userID int64, role models.RoleType) (string, error) {
	if role == models.RoleStudent {
		var handle *string
		err := r.db.QueryRow(ctx,
			`SELECT anonymous_name FROM users WHERE id = $1`, userID,
		).Scan(&handle)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", apperrors.ErrUserNotFound
			}
			return "", fmt.Errorf("error resolving anonymous handle: %w", err)
		}
		if handle == nil || *handle == "" {
			// Students without a stored handle still never leak a real name
			return "anonymous", nil
		}
		return *handle, nil
	}

	var firstName, lastName string
	err := r.db.QueryRow(ctx,
		`SELECT first_name, last_name FROM users WHERE id = $1`, userID,
	).Scan(&firstName, &lastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrUserNotFound
		}
		return "", fmt.Errorf("error resolving display name: %w", err)
	}
	return firstName + " " + lastName, nil
}
