package presence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Broadcaster announces presence transitions to whoever needs them: the
// local websocket hub always, and the cross-instance relay when configured.
type Broadcaster interface {
	PresenceChanged(ctx context.Context, userID uuid.UUID, online bool)
}

// Service layers transition detection on top of the tracker: only the first
// connection announces userOnline and only the last disconnect announces
// userOffline.
type Service struct {
	tracker      *Tracker
	broadcasters []Broadcaster
}

func NewService(tracker *Tracker, broadcasters ...Broadcaster) (*Service, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker required")
	}
	return &Service{tracker: tracker, broadcasters: broadcasters}, nil
}

func (s *Service) HandleConnect(ctx context.Context, userID uuid.UUID, connID string) {
	if s.tracker.Connect(userID, connID) {
		s.announce(ctx, userID, true)
	}
}

func (s *Service) HandleDisconnect(ctx context.Context, userID uuid.UUID, connID string) {
	if s.tracker.Disconnect(userID, connID) {
		s.announce(ctx, userID, false)
	}
}

func (s *Service) IsOnline(userID uuid.UUID) bool {
	return s.tracker.IsOnline(userID)
}

func (s *Service) Online() []uuid.UUID {
	return s.tracker.Online()
}

func (s *Service) announce(ctx context.Context, userID uuid.UUID, online bool) {
	for _, b := range s.broadcasters {
		b.PresenceChanged(ctx, userID, online)
	}
}
