package domain

import "context"

// MessageRepository is the durable append-only message store.
type MessageRepository interface {
	// Append assigns the next per-room sequence number and inserts the
	// message in one transaction, returning the assigned sequence.
	// Appending to a room without a sequence row fails with ErrRoomNotFound.
	Append(ctx context.Context, msg *Message) (int64, error)
	// History returns up to limit messages of a room with seq < beforeSeq
	// (beforeSeq <= 0 means "from the newest"), newest first.
	History(ctx context.Context, roomID string, beforeSeq int64, limit int) ([]Message, error)
}

// ChatroomRepository is the read side of room membership. Room lifecycle is
// owned by the chatroom collaborator and never touched here.
type ChatroomRepository interface {
	IsMember(ctx context.Context, userID, roomID string) (bool, error)
	MembersOf(ctx context.Context, roomID string) ([]string, error)
	GetChatroom(ctx context.Context, roomID string) (*Chatroom, error)
}

// UserRepository reads user records for notification fan-out.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	// ClearPushSubscription drops a stale push target. Called when the push
	// transport reports the target permanently gone.
	ClearPushSubscription(ctx context.Context, userID string) error
}
