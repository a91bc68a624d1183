package realtime

import (
	"context"
	"sync"
)

// PresenceRegistry tracks which users currently have live connections and on
// how many devices. State is ephemeral: a restart is equivalent to everyone
// having just disconnected. The interface exists so a distributed backend can
// replace the in-process map without touching protocol logic.
type PresenceRegistry interface {
	// Connect registers a connection handle under the user. Idempotent per
	// handle. Returns true when this is the user's first live handle, i.e.
	// the user just came online.
	Connect(ctx context.Context, userID int64, connID string) (bool, error)

	// Disconnect removes the handle. Returns true when the user's last
	// handle closed, i.e. the user just went offline. Exactly one true per
	// online-to-offline transition.
	Disconnect(ctx context.Context, userID int64, connID string) (bool, error)

	// IsOnline reports whether the user has at least one live handle
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

// MemoryPresence is the in-process presence registry
type MemoryPresence struct {
	mu      sync.Mutex
	handles map[int64]map[string]struct{}
}

// NewMemoryPresence creates an empty in-process presence registry
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{
		handles: make(map[int64]map[string]struct{}),
	}
}

// Connect implements PresenceRegistry
func (p *MemoryPresence) Connect(_ context.Context, userID int64, connID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.handles[userID]
	if !ok {
		set = make(map[string]struct{})
		p.handles[userID] = set
	}

	wasOffline := len(set) == 0
	set[connID] = struct{}{}
	return wasOffline, nil
}

// Disconnect implements PresenceRegistry
func (p *MemoryPresence) Disconnect(_ context.Context, userID int64, connID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.handles[userID]
	if !ok {
		return false, nil
	}

	if _, held := set[connID]; !held {
		return false, nil
	}

	delete(set, connID)
	if len(set) == 0 {
		delete(p.handles, userID)
		return true, nil
	}
	return false, nil
}

// IsOnline implements PresenceRegistry
func (p *MemoryPresence) IsOnline(_ context.Context, userID int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles[userID]) > 0, nil
}
