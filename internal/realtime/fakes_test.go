package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
	"github.com/campusmind/campusmind/internal/pkg/apperrors"
)

// fakeDirectStore keeps conversations and messages in memory so handler
// tests run without a database.
type fakeDirectStore struct {
	conversations map[int64]*models.Conversation
	messages      []*models.Message
	nextID        int64

	// failWith makes every call fail, for error-path tests
	failWith error
}

func newFakeDirectStore(conversations ...*models.Conversation) *fakeDirectStore {
	s := &fakeDirectStore{
		conversations: make(map[int64]*models.Conversation),
		nextID:        1,
	}
	for _, conv := range conversations {
		s.conversations[conv.ID] = conv
	}
	return s
}

func (s *fakeDirectStore) GetConversation(_ context.Context, id, requesterID int64) (*models.Conversation, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	conv, ok := s.conversations[id]
	if !ok || !conv.HasParticipant(requesterID) {
		return nil, apperrors.ErrConversationNotFound
	}
	return conv, nil
}

func (s *fakeDirectStore) InsertMessage(_ context.Context, conversationID, senderID, receiverID int64, content string) (*models.Message, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	message := &models.Message{
		ID:             s.nextID,
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	s.nextID++
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *fakeDirectStore) MarkRead(_ context.Context, conversationID, readerID int64) ([]int64, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var changed []int64
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			changed = append(changed, m.ID)
		}
	}
	return changed, nil
}

func (s *fakeDirectStore) UnreadCount(_ context.Context, conversationID, userID int64) (int, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	count := 0
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeDirectStore) TotalUnread(_ context.Context, userID int64) (int, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	count := 0
	for _, m := range s.messages {
		if m.ReceiverID == userID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

// fakeCommunityStore keeps communities, memberships and messages in memory
type fakeCommunityStore struct {
	communities map[int64]*models.Community
	members     map[int64]map[int64]bool
	messages    []*models.CommunityMessage
	handles     map[int64]string
	nextID      int64

	failWith error
}

func newFakeCommunityStore(communities ...*models.Community) *fakeCommunityStore {
	s := &fakeCommunityStore{
		communities: make(map[int64]*models.Community),
		members:     make(map[int64]map[int64]bool),
		handles:     make(map[int64]string),
		nextID:      1,
	}
	for _, community := range communities {
		s.communities[community.ID] = community
	}
	return s
}

func (s *fakeCommunityStore) addMember(communityID, userID int64) {
	if s.members[communityID] == nil {
		s.members[communityID] = make(map[int64]bool)
	}
	s.members[communityID][userID] = true
}

func (s *fakeCommunityStore) GetCommunity(_ context.Context, id int64) (*models.Community, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	community, ok := s.communities[id]
	if !ok {
		return nil, apperrors.ErrCommunityNotFound
	}
	return community, nil
}

func (s *fakeCommunityStore) IsMember(_ context.Context, communityID, userID int64) (bool, error) {
	if s.failWith != nil {
		return false, s.failWith
	}
	return s.members[communityID][userID], nil
}

func (s *fakeCommunityStore) InsertMessage(_ context.Context, communityID, senderID int64, senderRole models.RoleType, content string) (*models.CommunityMessage, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	message := &models.CommunityMessage{
		ID:          s.nextID,
		CommunityID: communityID,
		SenderID:    senderID,
		SenderRole:  senderRole,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	s.nextID++
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *fakeCommunityStore) ListMessages(_ context.Context, communityID int64, limit int, beforeID int64) ([]*models.CommunityMessage, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var page []*models.CommunityMessage
	for i := len(s.messages) - 1; i >= 0 && len(page) < limit; i-- {
		m := s.messages[i]
		if m.CommunityID != communityID {
			continue
		}
		if beforeID > 0 && m.ID >= beforeID {
			continue
		}
		page = append(page, m)
	}
	return page, nil
}

func (s *fakeCommunityStore) ResolveDisplayName(_ context.Context, userID int64, role models.RoleType) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	if role == models.RoleStudent {
		if handle, ok := s.handles[userID]; ok {
			return handle, nil
		}
		return "anonymous", nil
	}
	return fmt.Sprintf("user-%d", userID), nil
}

// newTestClient builds a client with a buffered send channel and no socket;
// handlers are exercised directly, without pumps.
func newTestClient(id string, identity Identity) *Client {
	return &Client{
		send:     make(chan []byte, sendBufferSize),
		id:       id,
		identity: identity,
		logger:   zerolog.Nop(),
	}
}

// nextEvent pops the next frame queued for the client, failing the test when
// none is pending.
func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case frame := <-c.send:
		var event Event
		if err := json.Unmarshal(frame, &event); err != nil {
			t.Fatalf("malformed frame %q: %v", frame, err)
		}
		return event
	default:
		t.Fatalf("client %s: no event pending", c.id)
		return Event{}
	}
}

// expectEvent asserts the next pending event has the given name and decodes
// its payload into out.
func expectEvent(t *testing.T, c *Client, name string, out interface{}) {
	t.Helper()
	event := nextEvent(t, c)
	if event.Name != name {
		t.Fatalf("client %s: got event %q, want %q", c.id, event.Name, name)
	}
	if out != nil {
		if err := json.Unmarshal(event.Data, out); err != nil {
			t.Fatalf("failed to decode %s payload: %v", name, err)
		}
	}
}

// expectNoEvent asserts the client has nothing queued
func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("client %s: unexpected event %s", c.id, frame)
	default:
	}
}

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}
