package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/app/repositories"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// CommunityService handles peer-support communities. It doubles as the
// persistence collaborator of the socket layer's community protocol.
type CommunityService struct {
	communityRepo *repositories.CommunityRepository
	memberRepo    *repositories.CommunityMemberRepository
	messageRepo   *repositories.CommunityMessageRepository
	userRepo      *repositories.UserRepository
	logger        zerolog.Logger
}

// NewCommunityService creates a new CommunityService
func NewCommunityService(
	communityRepo *repositories.CommunityRepository,
	memberRepo *repositories.CommunityMemberRepository,
	messageRepo *repositories.CommunityMessageRepository,
	userRepo *repositories.UserRepository,
	logger zerolog.Logger,
) *CommunityService {
	return &CommunityService{
		communityRepo: communityRepo,
		memberRepo:    memberRepo,
		messageRepo:   messageRepo,
		userRepo:      userRepo,
		logger:        logger,
	}
}

// Create creates a community in the creator's college. Students cannot
// create communities.
func (s *CommunityService) Create(ctx context.Context, creatorID int64, creatorRole models.RoleType, collegeID int64, title, description string) (*models.Community, error) {
	if creatorRole == models.RoleStudent {
		return nil, apperrors.ErrPermissionDenied
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewValidationError("Title is required")
	}

	community := &models.Community{
		CollegeID:   collegeID,
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedBy:   creatorID,
	}
	// The creator is a member from the start, atomically
	if err := s.communityRepo.CreateWithOwner(ctx, community); err != nil {
		return nil, fmt.Errorf("failed to create community: %w", err)
	}
	community.MemberCount = 1

	return community, nil
}

// List returns the communities of the caller's college, optionally filtered
// by a title search. Other colleges' communities are never listed.
func (s *CommunityService) List(ctx context.Context, collegeID int64, search string) ([]*models.Community, error) {
	return s.communityRepo.ListByCollege(ctx, collegeID, search)
}

// Get returns a community of the caller's college with its member count.
// Other colleges' communities answer exactly like absent ones.
func (s *CommunityService) Get(ctx context.Context, communityID, collegeID int64) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.CollegeID != collegeID {
		return nil, apperrors.ErrPermissionDenied
	}

	count, err := s.memberRepo.CountByCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to count community members: %w", err)
	}
	community.MemberCount = count

	return community, nil
}

// Join adds the caller as a member. Joining a community of another college
// answers exactly like joining an absent one.
func (s *CommunityService) Join(ctx context.Context, communityID, userID, collegeID int64) error {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CollegeID != collegeID {
		return apperrors.ErrPermissionDenied
	}

	if _, err := s.memberRepo.Add(ctx, communityID, userID); err != nil {
		return err
	}
	return nil
}

// Leave removes the caller's membership
func (s *CommunityService) Leave(ctx context.Context, communityID, userID int64) error {
	return s.memberRepo.Remove(ctx, communityID, userID)
}

// GetCommunity implements the socket layer's lookup
func (s *CommunityService) GetCommunity(ctx context.Context, id int64) (*models.Community, error) {
	return s.communityRepo.GetByID(ctx, id)
}

// IsMember implements the socket layer's durable membership predicate
func (s *CommunityService) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	return s.memberRepo.IsMember(ctx, communityID, userID)
}

// InsertMessage persists a community message with the sender's role
// snapshotted at send time.
func (s *CommunityService) InsertMessage(ctx context.Context, communityID, senderID int64, senderRole models.RoleType, content string) (*models.CommunityMessage, error) {
	message := &models.CommunityMessage{
		CommunityID: communityID,
		SenderID:    senderID,
		SenderRole:  senderRole,
		Content:     content,
	}
	if err := s.messageRepo.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to insert community message: %w", err)
	}
	return message, nil
}

// ListMessages returns a reverse-chronological page of community history
func (s *CommunityService) ListMessages(ctx context.Context, communityID int64, limit int, beforeID int64) ([]*models.CommunityMessage, error) {
	return s.messageRepo.ListBefore(ctx, communityID, limit, beforeID)
}

// ResolveDisplayName returns the identity a message is displayed under:
// the persistent anonymous handle for students, the real name otherwise.
func (s *CommunityService) ResolveDisplayName(ctx context.Context, userID int64, role models.RoleType) (string, error) {
	return s.userRepo.ResolveDisplayName(ctx, userID, role)
}
