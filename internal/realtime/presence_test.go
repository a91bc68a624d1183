package realtime

import (
	"context"
	"testing"
)

func TestMemoryPresenceSingleHandle(t *testing.T) {
	p := NewMemoryPresence()
	ctx := context.Background()

	first, err := p.Connect(ctx, 1, "a")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !first {
		t.Error("first handle should report the user came online")
	}

	online, _ := p.IsOnline(ctx, 1)
	if !online {
		t.Error("user should be online")
	}

	last, err := p.Disconnect(ctx, 1, "a")
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !last {
		t.Error("last handle should report the user went offline")
	}

	online, _ = p.IsOnline(ctx, 1)
	if online {
		t.Error("user should be offline")
	}
}

func TestMemoryPresenceMultipleDevices(t *testing.T) {
	p := NewMemoryPresence()
	ctx := context.Background()

	first, _ := p.Connect(ctx, 1, "laptop")
	if !first {
		t.Error("first device should be the online transition")
	}

	second, _ := p.Connect(ctx, 1, "phone")
	if second {
		t.Error("second device must not re-announce the user online")
	}

	last, _ := p.Disconnect(ctx, 1, "laptop")
	if last {
		t.Error("closing one of two devices must not report offline")
	}
	if online, _ := p.IsOnline(ctx, 1); !online {
		t.Error("user should still be online through the phone")
	}

	last, _ = p.Disconnect(ctx, 1, "phone")
	if !last {
		t.Error("closing the final device should report offline")
	}
}

func TestMemoryPresenceUnknownHandle(t *testing.T) {
	p := NewMemoryPresence()
	ctx := context.Background()

	if last, _ := p.Disconnect(ctx, 1, "ghost"); last {
		t.Error("disconnecting an unknown handle must not report offline")
	}

	p.Connect(ctx, 1, "a")
	if last, _ := p.Disconnect(ctx, 1, "ghost"); last {
		t.Error("unknown handle must not count against live handles")
	}
	if online, _ := p.IsOnline(ctx, 1); !online {
		t.Error("user should remain online")
	}
}

func TestMemoryPresenceConnectIdempotent(t *testing.T) {
	p := NewMemoryPresence()
	ctx := context.Background()

	p.Connect(ctx, 1, "a")
	if first, _ := p.Connect(ctx, 1, "a"); first {
		t.Error("re-registering the same handle must not re-announce online")
	}

	// The duplicate registration still counts as one handle
	if last, _ := p.Disconnect(ctx, 1, "a"); !last {
		t.Error("single handle should report offline on disconnect")
	}
}
