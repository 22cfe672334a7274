package realtime

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ramikart/ramikart-backend/pkg/config"
	"github.com/ramikart/ramikart-backend/pkg/logger"
)

func testHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "realtime-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	hub := NewHub(nil, logg)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func testClient(hub *Hub, userID uuid.UUID, buffer int) *Client {
	logg := logger.New(logger.Options{ServiceName: "realtime-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	return NewClient(hub, nil, userID, nil, config.RealtimeConfig{
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		MaxMessageSize: 4096,
		SendBuffer:     buffer,
	}, logg)
}

func waitConnections(t *testing.T, hub *Hub, userID uuid.UUID, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.userClients[userID])
		hub.mu.RUnlock()
		if n == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("user %s never reached %d connections", userID, want)
}

func receiveFrame(t *testing.T, client *Client) ServerFrame {
	t.Helper()
	select {
	case data := <-client.send:
		var frame ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return ServerFrame{}
	}
}

func TestHubPushReachesEveryConnectionOfUser(t *testing.T) {
	hub, cancel := testHub(t)
	defer cancel()
	user := uuid.New()
	other := uuid.New()

	first := testClient(hub, user, 8)
	second := testClient(hub, user, 8)
	bystander := testClient(hub, other, 8)
	hub.Register(first)
	hub.Register(second)
	hub.Register(bystander)
	waitConnections(t, hub, user, 2)
	waitConnections(t, hub, other, 1)

	hub.Push(context.Background(), user, ServerFrame{Type: EventNewMessage})

	if frame := receiveFrame(t, first); frame.Type != EventNewMessage {
		t.Fatalf("first frame = %s", frame.Type)
	}
	if frame := receiveFrame(t, second); frame.Type != EventNewMessage {
		t.Fatalf("second frame = %s", frame.Type)
	}
	select {
	case <-bystander.send:
		t.Fatal("bystander received a private frame")
	default:
	}
}

func TestHubBroadcastReachesAllUsers(t *testing.T) {
	hub, cancel := testHub(t)
	defer cancel()

	a := testClient(hub, uuid.New(), 8)
	b := testClient(hub, uuid.New(), 8)
	hub.Register(a)
	hub.Register(b)
	waitConnections(t, hub, a.UserID, 1)
	waitConnections(t, hub, b.UserID, 1)

	hub.Broadcast(context.Background(), ServerFrame{Type: EventUserOnline})

	if frame := receiveFrame(t, a); frame.Type != EventUserOnline {
		t.Fatalf("a frame = %s", frame.Type)
	}
	if frame := receiveFrame(t, b); frame.Type != EventUserOnline {
		t.Fatalf("b frame = %s", frame.Type)
	}
}

func TestPresenceBroadcastSkipsTransitioningUser(t *testing.T) {
	hub, cancel := testHub(t)
	defer cancel()
	joiner := uuid.New()

	ownTab := testClient(hub, joiner, 8)
	otherTab := testClient(hub, joiner, 8)
	watcher := testClient(hub, uuid.New(), 8)
	hub.Register(ownTab)
	hub.Register(otherTab)
	hub.Register(watcher)
	waitConnections(t, hub, joiner, 2)
	waitConnections(t, hub, watcher.UserID, 1)

	NewPresenceBroadcaster(hub).PresenceChanged(context.Background(), joiner, true)

	if frame := receiveFrame(t, watcher); frame.Type != EventUserOnline {
		t.Fatalf("watcher frame = %s", frame.Type)
	}
	// The user coming online never hears about their own transition.
	select {
	case data := <-ownTab.send:
		t.Fatalf("joiner received own presence frame: %s", data)
	case data := <-otherTab.send:
		t.Fatalf("joiner's other tab received own presence frame: %s", data)
	default:
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub, cancel := testHub(t)
	defer cancel()
	user := uuid.New()

	stays := testClient(hub, user, 8)
	leaves := testClient(hub, user, 8)
	hub.Register(stays)
	hub.Register(leaves)
	waitConnections(t, hub, user, 2)
	hub.Unregister(leaves)
	waitConnections(t, hub, user, 1)

	hub.Push(context.Background(), user, ServerFrame{Type: EventTyping})

	if frame := receiveFrame(t, stays); frame.Type != EventTyping {
		t.Fatalf("frame = %s", frame.Type)
	}
	select {
	case data, ok := <-leaves.send:
		if ok {
			t.Fatalf("removed client received %s", data)
		}
	default:
	}
}

func TestHubSkipsFullBuffers(t *testing.T) {
	hub, cancel := testHub(t)
	defer cancel()
	user := uuid.New()

	slow := testClient(hub, user, 1)
	hub.Register(slow)
	waitConnections(t, hub, user, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			hub.Push(context.Background(), user, ServerFrame{Type: EventTyping})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a full send buffer")
	}
}
