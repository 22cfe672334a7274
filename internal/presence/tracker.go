package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Tracker keeps the in-memory map of who is connected to this instance.
// A user is online while at least one of their connections is open; opening
// a second tab must not re-announce them and closing one of two tabs must
// not mark them offline.
type Tracker struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{conns: make(map[uuid.UUID]map[string]struct{})}
}

// Connect records a connection and reports whether it is the user's first.
func (t *Tracker) Connect(userID uuid.UUID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		t.conns[userID] = set
	}
	set[connID] = struct{}{}
	return !ok
}

// Disconnect removes a connection and reports whether it was the user's last.
// Unknown connections are ignored.
func (t *Tracker) Disconnect(userID uuid.UUID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.conns, userID)
		return true
	}
	return false
}

func (t *Tracker) IsOnline(userID uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns[userID]) > 0
}

// Online returns the ids of every user with at least one open connection.
func (t *Tracker) Online() []uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(t.conns))
	for id := range t.conns {
		ids = append(ids, id)
	}
	return ids
}

// Connections reports how many connections a user currently holds.
func (t *Tracker) Connections(userID uuid.UUID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns[userID])
}
