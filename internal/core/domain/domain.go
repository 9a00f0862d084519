// Package domain holds the core chat entities shared by services,
// transport and storage adapters.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content is the body of a chat message. Either Text or FileURL must be
// present; FileType qualifies the attachment ("image", "pdf", ...).
type Content struct {
	Text     string
	FileURL  string
	FileType string
}

// Empty reports whether the content carries neither text nor an attachment.
func (c Content) Empty() bool {
	return strings.TrimSpace(c.Text) == "" && c.FileURL == ""
}

// Message is an immutable chat record. Seq is assigned at persistence time
// and is strictly monotonic within a room.
type Message struct {
	ID        uuid.UUID
	RoomID    string
	SenderID  string
	Content   Content
	Seq       int64
	CreatedAt time.Time
}

// Chatroom is the durable room entity. The chat core only reads it; room
// lifecycle belongs to the chatroom collaborator.
type Chatroom struct {
	ID      string
	Name    string
	Members []string
}

// User is the slice of the user record the chat core needs: a display name
// for notification titles and an optional push target.
type User struct {
	ID           string
	Name         string
	Subscription *PushSubscription
}

// PushSubscription is a user's registered web-push endpoint. At most one per
// user; registered and cleared by the user collaborator.
type PushSubscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Notification is the fan-out job enqueued after a message is broadcast.
// Recipient resolution happens at delivery time, not enqueue time.
type Notification struct {
	MessageID uuid.UUID `json:"message_id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   Content   `json:"content"`
}

// PushPayload is the short out-of-band payload shown on a recipient's device.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}
