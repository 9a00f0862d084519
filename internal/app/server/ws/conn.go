package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 512 * 1024 // protects against memory exhaustion
)

type WebSocket struct {
	*websocket.Conn
}

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{Conn: conn}
}

func (w *WebSocket) WriteMessage(data []byte) error {
	w.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

// ReadLoop pumps inbound frames to onMsg until the peer goes away.
func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	defer w.Close()
	w.Conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("ws - read loop - unexpected close", "err", err)
			}
			break
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}

func (w *WebSocket) Close() {
	_ = w.Conn.Close()
}
