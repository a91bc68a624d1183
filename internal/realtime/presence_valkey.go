package realtime

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"
)

// ValkeyPresence keeps presence sets in Valkey so several processes agree on
// who is online. One set per user, members are connection handles.
type ValkeyPresence struct {
	client valkey.Client
	prefix string
}

// NewValkeyPresence creates a presence registry backed by Valkey
func NewValkeyPresence(client valkey.Client) *ValkeyPresence {
	return &ValkeyPresence{
		client: client,
		prefix: "presence:user:",
	}
}

func (p *ValkeyPresence) key(userID int64) string {
	return fmt.Sprintf("%s%d", p.prefix, userID)
}

// Connect implements PresenceRegistry
func (p *ValkeyPresence) Connect(ctx context.Context, userID int64, connID string) (bool, error) {
	key := p.key(userID)

	added, err := p.client.Do(ctx, p.client.B().Sadd().Key(key).Member(connID).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("presence connect failed: %w", err)
	}

	card, err := p.client.Do(ctx, p.client.B().Scard().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("presence cardinality check failed: %w", err)
	}

	// First handle: the add took effect and it is the only member
	return added == 1 && card == 1, nil
}

// Disconnect implements PresenceRegistry
func (p *ValkeyPresence) Disconnect(ctx context.Context, userID int64, connID string) (bool, error) {
	key := p.key(userID)

	removed, err := p.client.Do(ctx, p.client.B().Srem().Key(key).Member(connID).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("presence disconnect failed: %w", err)
	}
	if removed == 0 {
		return false, nil
	}

	card, err := p.client.Do(ctx, p.client.B().Scard().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("presence cardinality check failed: %w", err)
	}

	return card == 0, nil
}

// IsOnline implements PresenceRegistry
func (p *ValkeyPresence) IsOnline(ctx context.Context, userID int64) (bool, error) {
	card, err := p.client.Do(ctx, p.client.B().Scard().Key(p.key(userID)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("presence check failed: %w", err)
	}
	return card > 0, nil
}
