package realtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/pkg/auth"
)

// Identity is the verified identity attached to a connection for its whole
// lifetime. Every field comes from validated token claims; client-declared
// hints are never consulted for authorization.
type Identity struct {
	UserID    int64
	Role      models.RoleType
	CollegeID int64
}

// IsAdmin reports whether the identity carries admin privileges
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin || i.Role == models.RoleSuperAdmin
}

// IdentityFromClaims builds a connection identity from verified JWT claims.
// Both socket-scoped and access-scoped tokens are accepted; anything else
// fails closed.
func IdentityFromClaims(claims *auth.Claims) (Identity, error) {
	switch claims.Scope {
	case auth.ScopeSocket, auth.ScopeAccess:
	default:
		return Identity{}, fmt.Errorf("token scope %q not usable for socket auth", claims.Scope)
	}

	return Identity{
		UserID:    claims.UserID,
		Role:      models.RoleType(claims.Role),
		CollegeID: claims.CollegeID,
	}, nil
}

// Room naming. Conversations and communities broadcast in distinct
// namespaces so event traffic never crosses between the two protocols.
func conversationRoom(id int64) string {
	return fmt.Sprintf("conversation:%d", id)
}

func communityRoom(id int64) string {
	return fmt.Sprintf("community:%d", id)
}

// parseRoom extracts the numeric id from a room name with the given prefix
func parseRoom(room, prefix string) (int64, error) {
	if !strings.HasPrefix(room, prefix) {
		return 0, fmt.Errorf("room %q does not have prefix %q", room, prefix)
	}
	return strconv.ParseInt(strings.TrimPrefix(room, prefix), 10, 64)
}
