package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kingsley-codes/funlearn-backend/internal/app/registry"
	"github.com/Kingsley-codes/funlearn-backend/internal/app/server/handlers"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/services"
	"github.com/Kingsley-codes/funlearn-backend/pkg/middleware"
)

type Server struct {
	mux            *http.ServeMux
	log            *slog.Logger
	name           string
	addr           string
	wsHandler      *handlers.WSHandler
	historyHandler *handlers.HistoryHandler
	tokenSvc       *services.TokenService
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	messageSvc *services.MessageService,
	tokenSvc *services.TokenService,
	hub *registry.Registry,
) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		log:            log,
		name:           name,
		addr:           addr,
		wsHandler:      handlers.NewWSHandler(hub, messageSvc),
		historyHandler: handlers.NewHistoryHandler(messageSvc),
		tokenSvc:       tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)

	s.mux.HandleFunc("GET /", s.health)
	s.mux.Handle("/ws", auth(http.HandlerFunc(s.wsHandler.Handler)))
	s.mux.Handle("GET /api/chatroom/{roomID}/messages", auth(http.HandlerFunc(s.historyHandler.GetMessages)))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Welcome to FunLearn API",
	})
}

func (s *Server) Start(ctx context.Context) error {
	handler := middleware.RequestLogger(s.log)(
		middleware.TracerMiddleware(s.name)(s.mux),
	)
	server := &http.Server{
		Addr:        s.addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived WebSocket sessions.
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.log.Info("server starting", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
