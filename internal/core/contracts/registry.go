package contracts

import (
	"context"

	"github.com/google/uuid"
)

// Registry is the process-wide table of live connections and their room
// subscriptions. It is the only fine-grained mutable shared structure in the
// chat core; implementations must tolerate concurrent join/leave/disconnect
// while a broadcast snapshots a room.
type Registry interface {
	// Register adds a new connection with no subscriptions. Fails with
	// domain.ErrDuplicateConnection if the id is already present.
	Register(c Client) error
	// Unregister removes the connection and all its subscriptions
	// atomically. Idempotent.
	Unregister(connID uuid.UUID)
	// Join subscribes the connection to a room. No-op if already
	// subscribed; domain.ErrUnknownConnection if the connection is gone.
	Join(connID uuid.UUID, roomID string) error
	// Leave drops the subscription; no-op if absent.
	Leave(connID uuid.UUID, roomID string)
	// Lookup resolves the user behind a connection.
	Lookup(connID uuid.UUID) (userID string, ok bool)
	// ConnectionsInRoom returns a point-in-time snapshot of the room's
	// subscribed connections. Callers iterate the copy; a connection that
	// vanishes mid-delivery is a per-recipient no-op.
	ConnectionsInRoom(roomID string) []Client
	// UserOnlineInRoom reports whether the user has at least one live
	// connection subscribed to the room right now. Derived, never cached.
	UserOnlineInRoom(roomID, userID string) bool
}

// Client is the minimal surface the registry and dispatcher need to talk to
// one WebSocket connection.
type Client interface {
	ID() uuid.UUID
	UserID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
