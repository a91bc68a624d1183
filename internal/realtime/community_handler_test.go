package realtime

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/campusmind/campusmind/internal/app/models"
)

const testCommunityID = int64(5)

func newCommunityFixture(t *testing.T) (*CommunityHandler, *Hub, *fakeCommunityStore) {
	t.Helper()

	store := newFakeCommunityStore(&models.Community{
		ID:        testCommunityID,
		CollegeID: 1,
		Title:     "Exam Stress",
	})

	hub := newTestHub()
	handler := NewCommunityHandler(hub, NewTypingRegistry(), store, 100, 50, zerolog.Nop())

	return handler, hub, store
}

func joinMember(t *testing.T, handler *CommunityHandler, hub *Hub, store *fakeCommunityStore, client *Client) {
	t.Helper()
	store.addMember(testCommunityID, client.identity.UserID)
	hub.Register(client)
	handler.Join(context.Background(), client, CommunityRef{CommunityID: testCommunityID})
	drainClients(client)
}

func TestCommunityJoinAnnouncesAnonymized(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	counsellor := newTestClient("c1", Identity{UserID: 20, Role: models.RoleCounsellor, CollegeID: 1})
	joinMember(t, handler, hub, store, counsellor)

	student := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	store.addMember(testCommunityID, student.identity.UserID)
	hub.Register(student)

	handler.Join(ctx, student, CommunityRef{CommunityID: testCommunityID})

	var joined CommunityRef
	expectEvent(t, student, EventJoinedCommunity, &joined)
	if joined.CommunityID != testCommunityID {
		t.Errorf("joined community %d, want %d", joined.CommunityID, testCommunityID)
	}

	// The room learns a student arrived, never which one
	var arrival CommunityPresencePayload
	expectEvent(t, counsellor, EventUserJoined, &arrival)
	if arrival.Username != "anonymous" || arrival.Role != "student" {
		t.Errorf("arrival = %+v, want anonymous student", arrival)
	}

	// The joining client does not hear its own arrival
	expectNoEvent(t, student)
}

func TestCommunityJoinDeniedUniformly(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	// A community of another college and an absent community must be
	// indistinguishable to the caller
	store.communities[77] = &models.Community{ID: 77, CollegeID: 2, Title: "Other College"}

	client := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	hub.Register(client)

	handler.Join(ctx, client, CommunityRef{CommunityID: 77})
	var crossTenant ErrorPayload
	expectEvent(t, client, EventError, &crossTenant)

	handler.Join(ctx, client, CommunityRef{CommunityID: 404})
	var absent ErrorPayload
	expectEvent(t, client, EventError, &absent)

	if crossTenant.Message != absent.Message {
		t.Errorf("cross-tenant %q and absent %q must match", crossTenant.Message, absent.Message)
	}
	if hub.HasJoined(communityRoom(77), client) {
		t.Error("cross-tenant caller must not enter the room")
	}
}

func TestCommunityJoinRequiresMembership(t *testing.T) {
	handler, hub, _ := newCommunityFixture(t)
	ctx := context.Background()

	client := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	hub.Register(client)

	handler.Join(ctx, client, CommunityRef{CommunityID: testCommunityID})

	var errPayload ErrorPayload
	expectEvent(t, client, EventError, &errPayload)
	if errPayload.Message != "You are not a member of this community" {
		t.Errorf("error message = %q", errPayload.Message)
	}
}

func TestCommunityAdminJoinsWithoutMembership(t *testing.T) {
	handler, hub, _ := newCommunityFixture(t)
	ctx := context.Background()

	admin := newTestClient("a1", Identity{UserID: 30, Role: models.RoleAdmin, CollegeID: 1})
	hub.Register(admin)

	handler.Join(ctx, admin, CommunityRef{CommunityID: testCommunityID})

	expectEvent(t, admin, EventJoinedCommunity, nil)
	if !hub.HasJoined(communityRoom(testCommunityID), admin) {
		t.Error("admin should be in the room without a membership row")
	}
}

func TestCommunitySendRequiresJoin(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	// Durable membership alone is not enough; the connection must have
	// joined the room first
	client := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	store.addMember(testCommunityID, client.identity.UserID)
	hub.Register(client)

	handler.Send(ctx, client, CommunitySendPayload{CommunityID: testCommunityID, Content: "hi"})

	var errPayload ErrorPayload
	expectEvent(t, client, EventError, &errPayload)
	if errPayload.Message != "Join the community before sending messages" {
		t.Errorf("error message = %q", errPayload.Message)
	}
	if len(store.messages) != 0 {
		t.Error("message must not be persisted without a join")
	}
}

func TestCommunityStudentMessageIsAnonymous(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	student := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	counsellor := newTestClient("c1", Identity{UserID: 20, Role: models.RoleCounsellor, CollegeID: 1})
	store.handles[10] = "quiet-falcon"
	joinMember(t, handler, hub, store, student)
	joinMember(t, handler, hub, store, counsellor)
	drainClients(student, counsellor)

	handler.Send(ctx, student, CommunitySendPayload{CommunityID: testCommunityID, Content: "feeling overwhelmed"})

	var message CommunityMessagePayload
	expectEvent(t, counsellor, EventCommunityMessage, &message)
	if message.SenderID != 0 {
		t.Errorf("student sender id leaked: %d", message.SenderID)
	}
	if message.AnonymousUsername != "quiet-falcon" {
		t.Errorf("anonymous username = %q, want %q", message.AnonymousUsername, "quiet-falcon")
	}
	if message.Username != "" {
		t.Errorf("real username leaked: %q", message.Username)
	}
	if message.SenderRole != "student" {
		t.Errorf("sender role = %q", message.SenderRole)
	}
}

func TestCommunityCounsellorMessageIsAttributed(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	student := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	counsellor := newTestClient("c1", Identity{UserID: 20, Role: models.RoleCounsellor, CollegeID: 1})
	joinMember(t, handler, hub, store, student)
	joinMember(t, handler, hub, store, counsellor)
	drainClients(student, counsellor)

	handler.Send(ctx, counsellor, CommunitySendPayload{CommunityID: testCommunityID, Content: "here to help"})

	var message CommunityMessagePayload
	expectEvent(t, student, EventCommunityMessage, &message)
	if message.SenderID != 20 {
		t.Errorf("sender id = %d, want 20", message.SenderID)
	}
	if message.Username == "" || message.AnonymousUsername != "" {
		t.Errorf("counsellor attribution wrong: %+v", message)
	}
}

func TestCommunitySendLengthLimit(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	client := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	joinMember(t, handler, hub, store, client)

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'x'
	}
	handler.Send(ctx, client, CommunitySendPayload{CommunityID: testCommunityID, Content: string(long)})

	var errPayload ErrorPayload
	expectEvent(t, client, EventError, &errPayload)
	if errPayload.Message != "Message is too long" {
		t.Errorf("error message = %q", errPayload.Message)
	}
}

func TestCommunityHistoryPagination(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)
	ctx := context.Background()

	client := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	joinMember(t, handler, hub, store, client)

	for i := 0; i < 5; i++ {
		if _, err := store.InsertMessage(ctx, testCommunityID, 20, models.RoleCounsellor, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	handler.GetMessages(ctx, client, GetMessagesPayload{CommunityID: testCommunityID, Limit: 3})

	var page CommunityHistoryPayload
	expectEvent(t, client, EventMessages, &page)
	if len(page.Messages) != 3 {
		t.Fatalf("page size = %d, want 3", len(page.Messages))
	}
	if !page.HasMore {
		t.Error("older history remains, HasMore should be true")
	}
	// Newest first
	if page.Messages[0].ID != 5 {
		t.Errorf("first message id = %d, want 5", page.Messages[0].ID)
	}

	handler.GetMessages(ctx, client, GetMessagesPayload{CommunityID: testCommunityID, Limit: 3, BeforeID: page.Messages[2].ID})

	var rest CommunityHistoryPayload
	expectEvent(t, client, EventMessages, &rest)
	if len(rest.Messages) != 2 || rest.HasMore {
		t.Errorf("second page = %d messages, hasMore=%v, want 2 and false", len(rest.Messages), rest.HasMore)
	}
}

func TestCommunityLeaveAnnouncesDeparture(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)

	student := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	counsellor := newTestClient("c1", Identity{UserID: 20, Role: models.RoleCounsellor, CollegeID: 1})
	joinMember(t, handler, hub, store, student)
	joinMember(t, handler, hub, store, counsellor)
	drainClients(student, counsellor)

	handler.Leave(student, CommunityRef{CommunityID: testCommunityID})

	var departure CommunityPresencePayload
	expectEvent(t, counsellor, EventUserLeft, &departure)
	if departure.Username != "anonymous" {
		t.Errorf("departure username = %q, want anonymous", departure.Username)
	}
	if hub.HasJoined(communityRoom(testCommunityID), student) {
		t.Error("student should have left the room")
	}

	// Leaving twice announces nothing
	handler.Leave(student, CommunityRef{CommunityID: testCommunityID})
	expectNoEvent(t, counsellor)
}

func TestCommunityDisconnectAnnouncesDeparture(t *testing.T) {
	handler, hub, store := newCommunityFixture(t)

	student := newTestClient("s1", Identity{UserID: 10, Role: models.RoleStudent, CollegeID: 1})
	counsellor := newTestClient("c1", Identity{UserID: 20, Role: models.RoleCounsellor, CollegeID: 1})
	joinMember(t, handler, hub, store, student)
	joinMember(t, handler, hub, store, counsellor)
	drainClients(student, counsellor)

	rooms := hub.Unregister(student)
	handler.HandleDisconnect(student, rooms)

	var departure CommunityPresencePayload
	expectEvent(t, counsellor, EventUserLeft, &departure)
	if departure.CommunityID != testCommunityID || departure.Username != "anonymous" {
		t.Errorf("departure = %+v", departure)
	}
}
