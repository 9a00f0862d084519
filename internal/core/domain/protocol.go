package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeMessage = "message"
	TypeJoin    = "join"
	TypeLeave   = "leave"
	TypeError   = "error"
)

// Error codes carried on WS-safe error frames.
const (
	CodeUnknownConnection = "unknown_connection"
	CodeNotAMember        = "not_a_member"
	CodeMissingContent    = "missing_content"
	CodeRoomNotFound      = "room_not_found"
	CodeBadFrame          = "bad_frame"
	CodeInternal          = "internal"
)

// ContentPayload is the wire shape of message content.
type ContentPayload struct {
	Text     string `json:"text,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	FileType string `json:"file_type,omitempty"`
}

// InboundFrame is what a live connection sends: a message submission or a
// room join/leave.
type InboundFrame struct {
	Type        string         `json:"type"`
	RoomID      string         `json:"room_id"`
	Content     ContentPayload `json:"content"`
	ClientMsgID string         `json:"client_msg_id,omitempty"`
}

// MessageEvent is broadcast to every live connection in the room. The
// originating connection's copy additionally carries ClientMsgID so the
// client can replace its optimistic local echo.
type MessageEvent struct {
	Type        string         `json:"type"`
	ID          uuid.UUID      `json:"id"`
	RoomID      string         `json:"room_id"`
	SenderID    string         `json:"sender_id"`
	Seq         int64          `json:"seq"`
	Content     ContentPayload `json:"content"`
	CreatedAt   time.Time      `json:"created_at"`
	ClientMsgID string         `json:"client_msg_id,omitempty"`
}

// ErrorFrame is a WS-safe error sent only to the offending connection.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EventFromMessage maps a persisted message to its broadcast shape.
func EventFromMessage(m Message) MessageEvent {
	return MessageEvent{
		Type:     TypeMessage,
		ID:       m.ID,
		RoomID:   m.RoomID,
		SenderID: m.SenderID,
		Seq:      m.Seq,
		Content: ContentPayload{
			Text:     m.Content.Text,
			FileURL:  m.Content.FileURL,
			FileType: m.Content.FileType,
		},
		CreatedAt: m.CreatedAt,
	}
}
