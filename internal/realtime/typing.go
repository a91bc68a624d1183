package realtime

import "sync"

// TypingRegistry tracks, per room, which users are currently flagged as
// typing. Process-local and ephemeral. Flags must be cleared when the user
// sends a message in the room, leaves the room, or fully disconnects;
// a flag surviving any of those paths is a stuck "is typing" indicator.
type TypingRegistry struct {
	mu    sync.Mutex
	rooms map[string]map[int64]struct{}
}

// NewTypingRegistry creates an empty typing registry
func NewTypingRegistry() *TypingRegistry {
	return &TypingRegistry{
		rooms: make(map[string]map[int64]struct{}),
	}
}

// Start flags the user as typing in the room. Idempotent; returns true when
// the flag was not already set.
func (t *TypingRegistry) Start(roomID string, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[roomID]
	if !ok {
		set = make(map[int64]struct{})
		t.rooms[roomID] = set
	}

	if _, already := set[userID]; already {
		return false
	}
	set[userID] = struct{}{}
	return true
}

// Stop clears the user's typing flag in the room. Idempotent; returns true
// when a flag was actually cleared.
func (t *TypingRegistry) Stop(roomID string, userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked(roomID, userID)
}

func (t *TypingRegistry) stopLocked(roomID string, userID int64) bool {
	set, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	if _, held := set[userID]; !held {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}

// List returns the users currently typing in the room
func (t *TypingRegistry) List(roomID string) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.rooms[roomID]
	if len(set) == 0 {
		return nil
	}

	users := make([]int64, 0, len(set))
	for userID := range set {
		users = append(users, userID)
	}
	return users
}

// ClearUser removes the user's typing flag from every room and returns the
// rooms that were cleared, so departure notices can be sent per room.
func (t *TypingRegistry) ClearUser(userID int64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cleared []string
	for roomID := range t.rooms {
		if t.stopLocked(roomID, userID) {
			cleared = append(cleared, roomID)
		}
	}
	return cleared
}
