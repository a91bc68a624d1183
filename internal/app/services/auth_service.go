package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/app/repositories"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
	"github.com/campusmind/campusmind/internal/pkg/auth"
)

// TokenPair carries the credentials issued by login and refresh
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int
	RefreshExpiresIn int
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   *repositories.UserRepository
	tokenRepo  *repositories.TokenRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo *repositories.UserRepository,
	tokenRepo *repositories.TokenRepository,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login verifies credentials and issues a token pair. Unknown email and wrong
// password produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, apperrors.ErrAccountDisabled
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		// Login still succeeds; the timestamp is advisory
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login")
	}

	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A revoked or expired token fails closed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	stored, err := s.tokenRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	if stored.RevokedAt != nil {
		return nil, nil, apperrors.ErrTokenRevoked
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, nil, apperrors.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}

	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil {
		return nil, nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Logout revokes all refresh tokens of the user
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.tokenRepo.RevokeAllForUser(ctx, userID)
}

// SocketToken mints a short-lived token for one websocket connection attempt.
// The user is reloaded so the token carries current role and college claims.
func (s *AuthService) SocketToken(ctx context.Context, userID int64) (string, int, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	return s.jwtService.GenerateSocketToken(user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, refresh, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, user.ID, refresh, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
	}, nil
}
