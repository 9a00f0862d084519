// Package registry keeps the in-memory table of live WebSocket connections
// and their room subscriptions.
package registry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

type entry struct {
	client contracts.Client
	rooms  map[string]struct{}
}

// Registry is constructor-injected shared state: one instance per process,
// handed to the dispatcher and fan-out, never a package-level singleton.
type Registry struct {
	mu    sync.RWMutex
	log   *slog.Logger
	conns map[uuid.UUID]*entry
	// rooms indexes subscribed connections per room for broadcast snapshots.
	rooms map[string]map[uuid.UUID]contracts.Client
}

var _ contracts.Registry = (*Registry)(nil)

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log.With(slog.String("component", "registry")),
		conns: make(map[uuid.UUID]*entry),
		rooms: make(map[string]map[uuid.UUID]contracts.Client),
	}
}

func (r *Registry) Register(c contracts.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c.ID()]; exists {
		// Transport handed out the same id twice; reject, never overwrite.
		r.log.Error("registry - register - duplicate connection", "conn_id", c.ID().String(), "user_id", c.UserID())
		return domain.ErrDuplicateConnection
	}
	r.conns[c.ID()] = &entry{client: c, rooms: make(map[string]struct{})}
	r.log.Debug("registry - register - connection added", "conn_id", c.ID().String(), "user_id", c.UserID())
	return nil
}

func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return
	}
	for roomID := range e.rooms {
		r.dropFromRoom(connID, roomID)
	}
	delete(r.conns, connID)
	r.log.Debug("registry - unregister - connection removed", "conn_id", connID.String())
}

func (r *Registry) Join(connID uuid.UUID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return domain.ErrUnknownConnection
	}
	if _, subscribed := e.rooms[roomID]; subscribed {
		return nil
	}
	e.rooms[roomID] = struct{}{}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[uuid.UUID]contracts.Client)
	}
	r.rooms[roomID][connID] = e.client
	r.log.Debug("registry - join - subscribed", "conn_id", connID.String(), "room_id", roomID)
	return nil
}

func (r *Registry) Leave(connID uuid.UUID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return
	}
	if _, subscribed := e.rooms[roomID]; !subscribed {
		return
	}
	delete(e.rooms, roomID)
	r.dropFromRoom(connID, roomID)
	r.log.Debug("registry - leave - unsubscribed", "conn_id", connID.String(), "room_id", roomID)
}

func (r *Registry) Lookup(connID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return e.client.UserID(), true
}

// ConnectionsInRoom copies the recipient set before the caller iterates, so
// membership churn during delivery never invalidates the slice.
func (r *Registry) ConnectionsInRoom(roomID string) []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	snapshot := make([]contracts.Client, 0, len(members))
	for _, c := range members {
		snapshot = append(snapshot, c)
	}
	return snapshot
}

func (r *Registry) UserOnlineInRoom(roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.rooms[roomID] {
		if c.UserID() == userID {
			return true
		}
	}
	return false
}

// dropFromRoom removes the connection from the room index. Caller holds mu.
func (r *Registry) dropFromRoom(connID uuid.UUID, roomID string) {
	delete(r.rooms[roomID], connID)
	if len(r.rooms[roomID]) == 0 {
		delete(r.rooms, roomID)
	}
}
