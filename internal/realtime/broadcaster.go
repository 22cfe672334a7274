package realtime

import (
	"context"

	"github.com/google/uuid"
)

// PresencePayload accompanies userOnline and userOffline events.
type PresencePayload struct {
	UserID uuid.UUID `json:"userId"`
}

// OnlineUsersPayload is the snapshot a client receives right after connecting.
type OnlineUsersPayload struct {
	UserIDs []uuid.UUID `json:"userIds"`
}

// PresenceBroadcaster turns presence transitions into hub-wide frames.
type PresenceBroadcaster struct {
	hub *Hub
}

func NewPresenceBroadcaster(hub *Hub) *PresenceBroadcaster {
	return &PresenceBroadcaster{hub: hub}
}

func (b *PresenceBroadcaster) PresenceChanged(ctx context.Context, userID uuid.UUID, online bool) {
	event := EventUserOffline
	if online {
		event = EventUserOnline
	}
	b.hub.BroadcastExcept(ctx, userID, ServerFrame{Type: event, Payload: PresencePayload{UserID: userID}})
}
