package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories is a container for all repository instances
type Repositories struct {
	UserRepository             *UserRepository
	TokenRepository            *TokenRepository
	ConversationRepository     *ConversationRepository
	MessageRepository          *MessageRepository
	CommunityRepository        *CommunityRepository
	CommunityMemberRepository  *CommunityMemberRepository
	CommunityMessageRepository *CommunityMessageRepository
}

// NewRepositories creates all repositories over a shared pool
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:             NewUserRepository(db),
		TokenRepository:            NewTokenRepository(db),
		ConversationRepository:     NewConversationRepository(db),
		MessageRepository:          NewMessageRepository(db),
		CommunityRepository:        NewCommunityRepository(db),
		CommunityMemberRepository:  NewCommunityMemberRepository(db),
		CommunityMessageRepository: NewCommunityMessageRepository(db),
	}
}
