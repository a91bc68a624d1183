package realtime

import (
	"testing"

	"github.com/campusmind/campusmind/internal/app/models"
)

func TestHubJoinLeave(t *testing.T) {
	hub := newTestHub()
	client := newTestClient("c1", Identity{UserID: 1, Role: models.RoleStudent, CollegeID: 1})
	hub.Register(client)

	hub.Join("conversation:1", client)
	if !hub.HasJoined("conversation:1", client) {
		t.Error("client should be joined")
	}
	if hub.RoomSize("conversation:1") != 1 {
		t.Errorf("room size = %d, want 1", hub.RoomSize("conversation:1"))
	}

	if !hub.Leave("conversation:1", client) {
		t.Error("Leave should report the client was joined")
	}
	if hub.Leave("conversation:1", client) {
		t.Error("second Leave should report not joined")
	}
	if hub.RoomSize("conversation:1") != 0 {
		t.Error("room should be empty")
	}
}

func TestHubBroadcastTargets(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("a", Identity{UserID: 1, Role: models.RoleStudent, CollegeID: 1})
	b := newTestClient("b", Identity{UserID: 2, Role: models.RoleCounsellor, CollegeID: 1})
	c := newTestClient("c", Identity{UserID: 3, Role: models.RoleStudent, CollegeID: 1})
	for _, client := range []*Client{a, b, c} {
		hub.Register(client)
	}
	hub.Join("room", a)
	hub.Join("room", b)

	hub.BroadcastToRoom("room", []byte(`{"event":"x"}`))
	if len(a.send) != 1 || len(b.send) != 1 || len(c.send) != 0 {
		t.Errorf("room broadcast reached (%d, %d, %d), want (1, 1, 0)", len(a.send), len(b.send), len(c.send))
	}

	hub.BroadcastToRoomExcept("room", a, []byte(`{"event":"y"}`))
	if len(a.send) != 1 || len(b.send) != 2 {
		t.Error("except-broadcast must skip the excluded client")
	}

	drainClients(a, b, c)

	hub.SendToUser(3, []byte(`{"event":"z"}`))
	if len(c.send) != 1 || len(a.send) != 0 {
		t.Error("SendToUser must target only that user's connections")
	}

	drainClients(a, b, c)

	hub.BroadcastAll([]byte(`{"event":"w"}`))
	if len(a.send) != 1 || len(b.send) != 1 || len(c.send) != 1 {
		t.Error("BroadcastAll must reach every registered connection")
	}
}

func TestHubSendToUserAllDevices(t *testing.T) {
	hub := newTestHub()
	laptop := newTestClient("d1", Identity{UserID: 1, Role: models.RoleStudent, CollegeID: 1})
	phone := newTestClient("d2", Identity{UserID: 1, Role: models.RoleStudent, CollegeID: 1})
	hub.Register(laptop)
	hub.Register(phone)

	hub.SendToUser(1, []byte(`{"event":"x"}`))
	if len(laptop.send) != 1 || len(phone.send) != 1 {
		t.Error("both devices of the user should receive the event")
	}
}

func TestHubUnregister(t *testing.T) {
	hub := newTestHub()
	client := newTestClient("c1", Identity{UserID: 1, Role: models.RoleStudent, CollegeID: 1})
	hub.Register(client)
	hub.Join("conversation:1", client)
	hub.Join("community:2", client)

	rooms := hub.Unregister(client)
	if len(rooms) != 2 {
		t.Errorf("left %d rooms, want 2", len(rooms))
	}
	if hub.HasJoined("conversation:1", client) || hub.HasJoined("community:2", client) {
		t.Error("client should be out of all rooms")
	}

	// The send channel is closed; further enqueues are refused, not panics
	if client.enqueue([]byte("x")) {
		t.Error("enqueue after unregister should be refused")
	}

	hub.SendToUser(1, []byte(`{"event":"x"}`))
}
