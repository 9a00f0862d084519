package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kingsley-codes/funlearn-backend/internal/app/server/ws"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/services"
	"github.com/Kingsley-codes/funlearn-backend/pkg/logging"
	"github.com/Kingsley-codes/funlearn-backend/pkg/middleware"
)

type WSHandler struct {
	registry contracts.Registry
	messages services.IMessageService
}

func NewWSHandler(registry contracts.Registry, messages services.IMessageService) *WSHandler {
	return &WSHandler{
		registry: registry,
		messages: messages,
	}
}

func (h *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		log.ErrorContext(r.Context(), "ws handler - unauthorised missing user_id")
		http.Error(w, "Unauthorized: User ID missing", http.StatusUnauthorized)
		return
	}
	span.SetAttributes(attribute.String("user.id", userID))

	// The session outlives the upgrade request.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		cancel()
		return
	}
	defer conn.Close()
	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", "user_id", userID)
		cancel()
		return nil
	})
	socket := ws.NewWebSocket(conn)

	connID := uuid.New()
	client := ws.NewClient(ctx, socket, connID, userID)
	if err := h.registry.Register(client); err != nil {
		log.ErrorContext(r.Context(), "ws handler - register failed", logging.Conn(connID.String()), logging.Err(err))
		cancel()
		return
	}
	// Unregister is idempotent; registry cleanup on any exit path.
	defer h.registry.Unregister(connID)
	defer client.Close()
	span.SetAttributes(attribute.String("chat.conn_id", connID.String()))
	log.InfoContext(r.Context(), "ws handler - connection established", logging.Conn(connID.String()), "user_id", userID)

	socket.ReadLoop(func(data []byte) {
		h.handleFrame(ctx, client, data)
	})
}

func (h *WSHandler) handleFrame(ctx context.Context, client *ws.RuntimeClient, data []byte) {
	log := logging.FromContext(ctx)
	var frame domain.InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.sendError(ctx, client, domain.CodeBadFrame, "malformed frame")
		return
	}
	switch frame.Type {
	case domain.TypeJoin:
		// Speculative join: live traffic starts flowing now, membership is
		// enforced on every submit.
		if err := h.registry.Join(client.ID(), frame.RoomID); err != nil {
			h.sendError(ctx, client, domain.CodeUnknownConnection, "connection not registered")
		}
	case domain.TypeLeave:
		h.registry.Leave(client.ID(), frame.RoomID)
	case domain.TypeMessage:
		content := domain.Content{
			Text:     frame.Content.Text,
			FileURL:  frame.Content.FileURL,
			FileType: frame.Content.FileType,
		}
		if _, err := h.messages.Submit(ctx, client.ID(), frame.RoomID, content, frame.ClientMsgID); err != nil {
			log.WarnContext(ctx, "ws handler - submit rejected", logging.Room(frame.RoomID), logging.Conn(client.ID().String()), logging.Err(err))
			h.sendError(ctx, client, errorCode(err), err.Error())
		}
	default:
		h.sendError(ctx, client, domain.CodeBadFrame, "unknown frame type")
	}
}

func (h *WSHandler) sendError(ctx context.Context, client *ws.RuntimeClient, code, msg string) {
	frame := domain.ErrorFrame{Type: domain.TypeError, Code: code, Message: msg}
	data, _ := json.Marshal(frame)
	_ = client.Send(ctx, data)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownConnection):
		return domain.CodeUnknownConnection
	case errors.Is(err, domain.ErrNotAMember):
		return domain.CodeNotAMember
	case errors.Is(err, domain.ErrMissingContent):
		return domain.CodeMissingContent
	case errors.Is(err, domain.ErrRoomNotFound):
		return domain.CodeRoomNotFound
	default:
		return domain.CodeInternal
	}
}
