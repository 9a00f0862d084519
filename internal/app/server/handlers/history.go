package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/services"
	"github.com/Kingsley-codes/funlearn-backend/pkg/logging"
	"github.com/Kingsley-codes/funlearn-backend/pkg/middleware"
)

const (
	defaultHistoryLimit = 50
	// maxHistoryLimit bounds a client-supplied page size; LIMIT is bound
	// straight into the query below.
	maxHistoryLimit = 100
)

// HistoryHandler serves a room's message history so clients can reload after
// reconnecting (a broadcast missed while offline is recovered here).
type HistoryHandler struct {
	messages services.IMessageService
}

func NewHistoryHandler(messages services.IMessageService) *HistoryHandler {
	return &HistoryHandler{messages: messages}
}

func (h *HistoryHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	roomID := r.PathValue("roomID")

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}
	var beforeSeq int64
	if v := r.URL.Query().Get("before"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			beforeSeq = n
		}
	}

	msgs, err := h.messages.History(r.Context(), userID, roomID, beforeSeq, limit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotAMember):
			http.Error(w, "Access denied. You are not a member of this chatroom", http.StatusForbidden)
		case errors.Is(err, domain.ErrRoomNotFound):
			http.Error(w, "Chatroom not found", http.StatusNotFound)
		default:
			log.ErrorContext(r.Context(), "history handler - fetch failed", logging.Room(roomID), logging.Err(err))
			http.Error(w, "Server error while fetching messages", http.StatusInternalServerError)
		}
		return
	}

	events := make([]domain.MessageEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, domain.EventFromMessage(m))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"messages": events,
	})
}
