package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
)

const testConversationID = int64(1)

func newDMFixture(t *testing.T) (*DMHandler, *Hub, *fakeDirectStore, *Client, *Client) {
	t.Helper()

	store := newFakeDirectStore(&models.Conversation{
		ID:           testConversationID,
		CollegeID:    1,
		StudentID:    10,
		CounsellorID: 20,
	})

	hub := newTestHub()
	handler := NewDMHandler(hub, NewTypingRegistry(), store, zerolog.Nop())

	student := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	counsellor := newTestClient("c1", Identity{UserID: 20, Role: models.RoleCounsellor, CollegeID: 1})
	hub.Register(student)
	hub.Register(counsellor)

	return handler, hub, store, student, counsellor
}

func TestDMJoinParticipant(t *testing.T) {
	handler, hub, _, student, _ := newDMFixture(t)
	ctx := context.Background()

	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})

	var joined JoinedConversationPayload
	expectEvent(t, student, EventJoinedConversation, &joined)
	if joined.ConversationID != testConversationID {
		t.Errorf("joined conversation %d, want %d", joined.ConversationID, testConversationID)
	}

	if !hub.HasJoined(conversationRoom(testConversationID), student) {
		t.Error("student should be in the conversation room")
	}
}

func TestDMJoinNonParticipant(t *testing.T) {
	handler, hub, _, _, _ := newDMFixture(t)
	ctx := context.Background()

	outsider := newTestClient("x1", Identity{UserID: 99, Role: models.RoleStudent, CollegeID: 1})
	hub.Register(outsider)

	handler.Join(ctx, outsider, ConversationRef{ConversationID: testConversationID})

	var errPayload ErrorPayload
	expectEvent(t, outsider, EventError, &errPayload)
	if errPayload.Message != "Conversation not found" {
		t.Errorf("error message = %q, want %q", errPayload.Message, "Conversation not found")
	}
	if hub.HasJoined(conversationRoom(testConversationID), outsider) {
		t.Error("non-participant must not enter the room")
	}
}

func TestDMSendDeliversAndNotifies(t *testing.T) {
	handler, _, _, student, counsellor := newDMFixture(t)
	ctx := context.Background()

	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})
	handler.Join(ctx, counsellor, ConversationRef{ConversationID: testConversationID})
	drainClients(student, counsellor)

	handler.Send(ctx, student, SendMessagePayload{ConversationID: testConversationID, Content: "  hello  "})

	var senderCopy models.Message
	expectEvent(t, student, EventNewMessage, &senderCopy)
	if senderCopy.Content != "hello" {
		t.Errorf("content = %q, want trimmed %q", senderCopy.Content, "hello")
	}

	var receiverCopy models.Message
	expectEvent(t, counsellor, EventNewMessage, &receiverCopy)

	var notice MessageNoticePayload
	expectEvent(t, counsellor, EventMessageNotice, &notice)
	if notice.UnreadCount != 1 || notice.TotalUnread != 1 {
		t.Errorf("notice counts = (%d, %d), want (1, 1)", notice.UnreadCount, notice.TotalUnread)
	}
	if notice.Message == nil || notice.Message.SenderID != 10 {
		t.Errorf("notice message = %+v, want sender 10", notice.Message)
	}
}

func TestDMSendEmptyMessage(t *testing.T) {
	handler, _, store, student, _ := newDMFixture(t)
	ctx := context.Background()

	handler.Send(ctx, student, SendMessagePayload{ConversationID: testConversationID, Content: "   "})

	var errPayload ErrorPayload
	expectEvent(t, student, EventError, &errPayload)
	if errPayload.Message != "Message cannot be empty" {
		t.Errorf("error message = %q", errPayload.Message)
	}
	if len(store.messages) != 0 {
		t.Error("empty message must not be persisted")
	}
}

func TestDMSendClearsTypingFirst(t *testing.T) {
	handler, _, _, student, counsellor := newDMFixture(t)
	ctx := context.Background()

	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})
	handler.Join(ctx, counsellor, ConversationRef{ConversationID: testConversationID})
	handler.SetTyping(ctx, student, ConversationRef{ConversationID: testConversationID}, true)
	drainClients(student, counsellor)

	handler.Send(ctx, student, SendMessagePayload{ConversationID: testConversationID, Content: "done typing"})

	// The stop-typing notice reaches the other participant before the message
	var typingPayload TypingPayload
	expectEvent(t, counsellor, EventStopTyping, &typingPayload)
	if typingPayload.UserID != 10 || typingPayload.Typing {
		t.Errorf("typing payload = %+v, want user 10 stopped", typingPayload)
	}

	expectEvent(t, counsellor, EventNewMessage, nil)
}

func TestDMReadAfterJoin(t *testing.T) {
	handler, _, _, student, counsellor := newDMFixture(t)
	ctx := context.Background()

	// Student sends while the counsellor is away
	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})
	handler.Send(ctx, student, SendMessagePayload{ConversationID: testConversationID, Content: "are you there?"})
	drainClients(student, counsellor)

	// Opening the conversation implies reading it
	handler.Join(ctx, counsellor, ConversationRef{ConversationID: testConversationID})

	expectEvent(t, counsellor, EventJoinedConversation, nil)

	var receipt MessagesReadPayload
	expectEvent(t, student, EventMessagesRead, &receipt)
	if receipt.ReaderID != 20 || len(receipt.MessageIDs) != 1 {
		t.Errorf("receipt = %+v, want reader 20 with one message", receipt)
	}

	var unread UnreadCountPayload
	expectEvent(t, counsellor, EventUnreadCount, &unread)
	if unread.Count != 0 || unread.Total != 0 {
		t.Errorf("unread after read = (%d, %d), want (0, 0)", unread.Count, unread.Total)
	}
}

func TestDMMarkReadNoUnread(t *testing.T) {
	handler, _, _, student, counsellor := newDMFixture(t)
	ctx := context.Background()

	handler.MarkRead(ctx, counsellor, ConversationRef{ConversationID: testConversationID})

	// Nothing was unread, so neither side hears anything
	expectNoEvent(t, student)
	expectNoEvent(t, counsellor)
}

func TestDMTypingNotifiesOnlyOthers(t *testing.T) {
	handler, _, _, student, counsellor := newDMFixture(t)
	ctx := context.Background()

	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})
	handler.Join(ctx, counsellor, ConversationRef{ConversationID: testConversationID})
	drainClients(student, counsellor)

	handler.SetTyping(ctx, student, ConversationRef{ConversationID: testConversationID}, true)

	var typingPayload TypingPayload
	expectEvent(t, counsellor, EventTyping, &typingPayload)
	if typingPayload.UserID != 10 || !typingPayload.Typing {
		t.Errorf("typing payload = %+v", typingPayload)
	}
	expectNoEvent(t, student)

	// Repeating the same state changes nothing
	handler.SetTyping(ctx, student, ConversationRef{ConversationID: testConversationID}, true)
	expectNoEvent(t, counsellor)
}

func TestDMLeaveClearsTyping(t *testing.T) {
	handler, hub, _, student, counsellor := newDMFixture(t)
	ctx := context.Background()

	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})
	handler.Join(ctx, counsellor, ConversationRef{ConversationID: testConversationID})
	handler.SetTyping(ctx, student, ConversationRef{ConversationID: testConversationID}, true)
	drainClients(student, counsellor)

	handler.Leave(student, ConversationRef{ConversationID: testConversationID})

	var typingPayload TypingPayload
	expectEvent(t, counsellor, EventStopTyping, &typingPayload)
	if typingPayload.UserID != 10 || typingPayload.Typing {
		t.Errorf("typing payload = %+v", typingPayload)
	}
	if hub.HasJoined(conversationRoom(testConversationID), student) {
		t.Error("student should have left the room")
	}
}

func TestDMStoreFailureIsGeneric(t *testing.T) {
	handler, _, store, student, _ := newDMFixture(t)
	ctx := context.Background()

	store.failWith = errors.New("connection refused")

	handler.Join(ctx, student, ConversationRef{ConversationID: testConversationID})

	var errPayload ErrorPayload
	expectEvent(t, student, EventError, &errPayload)
	if errPayload.Message != genericFailure {
		t.Errorf("error message = %q, want generic", errPayload.Message)
	}
}

func drainClients(clients ...*Client) {
	for _, c := range clients {
		for len(c.send) > 0 {
			<-c.send
		}
	}
}
