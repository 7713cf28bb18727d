package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/adapters/gateway"
	"github.com/chatcore/chatcore/internal/adapters/httpapi"
	"github.com/chatcore/chatcore/internal/adapters/push"
	"github.com/chatcore/chatcore/internal/adapters/store"
	"github.com/chatcore/chatcore/internal/app"
	"github.com/chatcore/chatcore/internal/app/orch"
	"github.com/chatcore/chatcore/internal/auth"
	"github.com/chatcore/chatcore/internal/config"
	"github.com/chatcore/chatcore/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("jwt_secret is required")
	}

	db, err := store.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	var sender app.PushSender
	if cfg.FCMCredentials != "" {
		fcm, err := push.NewFCM(ctx, cfg.FCMCredentials)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init fcm")
		}
		sender = fcm
	} else {
		log.Warn().Msg("fcm credentials not configured, push disabled")
		sender = push.Disabled{}
	}

	registry := core.NewRegistry()
	chat := app.NewChatService(db.Users, db.Messages, db.Contacts, db.Blocks, db.Friends)
	rooms := app.NewRoomService(db.Rooms, db.Users)
	friends := app.NewFriendService(db.Friends, db.Blocks, db.Users)
	blocks := app.NewBlockService(db.Blocks, db.Friends, db.Users)
	notifs := app.NewNotificationService(db.Notifications, db.Users, sender)

	o := &orch.Orchestrator{
		Registry: registry,
		Fanout:   &orch.Fanout{Registry: registry},
		Chat:     chat,
		Rooms:    rooms,
		Friends:  friends,
		Blocks:   blocks,
		Notifs:   notifs,
		Users:    db.Users,
	}

	verifier := auth.NewVerifier(cfg.JWTSecret)
	limiter := gateway.NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateWindow)
	ws := gateway.NewController(o, verifier, limiter, gateway.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})

	r := httpapi.SetupRouter(ctx, cfg, o, ws, verifier)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chatcore server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}
