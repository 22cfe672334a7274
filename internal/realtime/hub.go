package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/pkg/logger"
	"github.com/ramikart/ramikart-backend/pkg/metrics"
)

// Hub is the per-instance registry of live websocket connections. It routes
// frames to a single user's connections or to everyone, and nothing more:
// presence bookkeeping and chat semantics live with their own services.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu          sync.RWMutex
	userClients map[uuid.UUID][]*Client

	metrics *metrics.APIMetrics
	logg    *logger.Logger
}

// NewHub builds a hub; metrics may be nil.
func NewHub(m *metrics.APIMetrics, logg *logger.Logger) *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		userClients: make(map[uuid.UUID][]*Client),
		metrics:     m,
		logg:        logg,
	}
}

// Run owns registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			client.shutdown()
			h.metrics.ConnectionClosed()
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.mu.Unlock()
}

// Push delivers a frame to every live connection of one user. Connections
// with a full send buffer are skipped rather than blocked on.
func (h *Hub) Push(ctx context.Context, userID uuid.UUID, frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logg.Error(ctx, "marshal server frame", err)
		return
	}

	h.mu.RLock()
	clients := append([]*Client(nil), h.userClients[userID]...)
	h.mu.RUnlock()

	delivered := false
	for _, client := range clients {
		if client.trySend(data) {
			delivered = true
		}
	}
	if delivered {
		h.metrics.IncEventsPushed(frame.Type)
	}
}

// Broadcast delivers a frame to every connection on this instance.
func (h *Hub) Broadcast(ctx context.Context, frame ServerFrame) {
	h.broadcast(ctx, uuid.Nil, frame)
}

// BroadcastExcept delivers a frame to every connection except those of the
// given user. Presence announcements use it so a user never hears about
// their own transition.
func (h *Hub) BroadcastExcept(ctx context.Context, exclude uuid.UUID, frame ServerFrame) {
	h.broadcast(ctx, exclude, frame)
}

func (h *Hub) broadcast(ctx context.Context, exclude uuid.UUID, frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logg.Error(ctx, "marshal server frame", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, clients := range h.userClients {
		if userID == exclude {
			continue
		}
		for _, client := range clients {
			client.trySend(data)
		}
	}
	h.metrics.IncEventsPushed(frame.Type)
}
