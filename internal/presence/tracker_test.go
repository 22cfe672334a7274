package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) PresenceChanged(ctx context.Context, userID uuid.UUID, online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := "offline"
	if online {
		state = "online"
	}
	b.events = append(b.events, userID.String()+":"+state)
}

func (b *recordingBroadcaster) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

func TestTrackerMultipleConnections(t *testing.T) {
	tracker := NewTracker()
	user := uuid.New()

	if first := tracker.Connect(user, "conn-1"); !first {
		t.Fatal("first connection must report first")
	}
	if first := tracker.Connect(user, "conn-2"); first {
		t.Fatal("second connection must not report first")
	}
	if !tracker.IsOnline(user) {
		t.Fatal("user should be online")
	}
	if got := tracker.Connections(user); got != 2 {
		t.Fatalf("connections = %d, want 2", got)
	}

	if last := tracker.Disconnect(user, "conn-1"); last {
		t.Fatal("closing one of two must not report last")
	}
	if !tracker.IsOnline(user) {
		t.Fatal("user should remain online with one connection left")
	}
	if last := tracker.Disconnect(user, "conn-2"); !last {
		t.Fatal("closing the final connection must report last")
	}
	if tracker.IsOnline(user) {
		t.Fatal("user should be offline")
	}
}

func TestTrackerIgnoresUnknownDisconnect(t *testing.T) {
	tracker := NewTracker()
	user := uuid.New()

	if last := tracker.Disconnect(user, "ghost"); last {
		t.Fatal("unknown disconnect must not report last")
	}

	tracker.Connect(user, "conn-1")
	if last := tracker.Disconnect(user, "ghost"); last {
		t.Fatal("unknown conn id must not report last")
	}
	if !tracker.IsOnline(user) {
		t.Fatal("user should still be online")
	}
}

func TestTrackerConcurrentChurn(t *testing.T) {
	tracker := NewTracker()
	users := make([]uuid.UUID, 8)
	for i := range users {
		users[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i, user := range users {
		for c := 0; c < 16; c++ {
			wg.Add(1)
			go func(user uuid.UUID, connID string) {
				defer wg.Done()
				tracker.Connect(user, connID)
				tracker.IsOnline(user)
				tracker.Disconnect(user, connID)
			}(user, fmt.Sprintf("conn-%d-%d", i, c))
		}
	}
	wg.Wait()

	if got := len(tracker.Online()); got != 0 {
		t.Fatalf("online after churn = %d, want 0", got)
	}
}

func TestServiceAnnouncesOnlyOnTransitions(t *testing.T) {
	tracker := NewTracker()
	rec := &recordingBroadcaster{}
	svc, err := NewService(tracker, rec)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	user := uuid.New()
	ctx := context.Background()

	svc.HandleConnect(ctx, user, "conn-1")
	svc.HandleConnect(ctx, user, "conn-2")
	svc.HandleDisconnect(ctx, user, "conn-1")
	svc.HandleDisconnect(ctx, user, "conn-2")

	want := []string{user.String() + ":online", user.String() + ":offline"}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
