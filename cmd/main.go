package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kingsley-codes/funlearn-backend/internal/app/registry"
	"github.com/Kingsley-codes/funlearn-backend/internal/app/server"
	"github.com/Kingsley-codes/funlearn-backend/internal/app/worker"
	"github.com/Kingsley-codes/funlearn-backend/internal/config"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/services"
	"github.com/Kingsley-codes/funlearn-backend/internal/platform/logger"
	"github.com/Kingsley-codes/funlearn-backend/internal/platform/telemetry"
	"github.com/Kingsley-codes/funlearn-backend/internal/plugins/postgres"
	redisPlugin "github.com/Kingsley-codes/funlearn-backend/internal/plugins/redis"
	"github.com/Kingsley-codes/funlearn-backend/internal/plugins/webpush"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		if otelShutdown == nil {
			return
		}
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "err", err)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return
	}
	log.Info("redis connected")

	// Adapters
	roomRepo := postgres.NewChatroomRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	userRepo := postgres.NewUserRepo(pdb)
	outbox := redisPlugin.NewNotificationOutbox(rdb)
	pusher := webpush.NewClient(*cfg.Push)

	// Core services
	hub := registry.NewRegistry(log)
	txManager := services.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	msgSvc := services.NewMessageService(log, hub, roomRepo, msgRepo, txManager, outbox)
	notifySvc := services.NewNotifyService(
		log, hub, roomRepo, userRepo, pusher, userRepo,
		cfg.Worker.FanoutConcurrency, cfg.Worker.PushTimeout,
	)

	// Notification outbox consumer
	wrkr := worker.NewNotificationWorker(log, outbox, notifySvc, cfg.Worker.NotificationGroup)
	go func() {
		if err := wrkr.Run(ctx); err != nil {
			log.Error("notification worker stopped", "err", err)
		}
	}()

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, msgSvc, tokenSvc, hub)
	if err := srv.Start(ctx); err != nil {
		log.Error("server failed", "err", err)
	}
	log.Info("shutdown complete")
}
