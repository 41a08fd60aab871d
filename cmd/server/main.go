package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/wowmobi/callsignal/internal/adapter/driven/persistence/sqlite"
	"github.com/wowmobi/callsignal/internal/adapter/driven/push/apns"
	"github.com/wowmobi/callsignal/internal/adapter/driven/push/fcm"
	handler "github.com/wowmobi/callsignal/internal/adapter/driving/http"
	"github.com/wowmobi/callsignal/internal/config"
	"github.com/wowmobi/callsignal/internal/core/port"
	"github.com/wowmobi/callsignal/internal/core/service"
)

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	zlog.Logger = l

	cfg, err := config.Load()
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to load config")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	calls := sqlite.NewCallRepository(store)
	signals := sqlite.NewSignalRepository(store)
	directory := sqlite.NewDirectory(store)
	sessions := sqlite.NewSessionResolver(store)

	var dataPusher port.DataPusher
	if cfg.FCMServerKey != "" {
		dataPusher = fcm.New(cfg.FCMServerKey)
	} else {
		l.Warn().Msg("FCM server key not configured, data pushes disabled")
	}

	var voipPusher port.VoipPusher
	if cfg.APNS.Enabled() {
		voipPusher, err = apns.New(apns.Config{
			KeyPath: cfg.APNS.KeyPath,
			TeamID:  cfg.APNS.TeamID,
			KeyID:   cfg.APNS.KeyID,
			Bundle:  cfg.APNS.Bundle,
			Sandbox: cfg.APNS.Sandbox,
		})
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to init APNs client")
		}
	} else {
		l.Warn().Msg("APNs VoIP not configured, voip pushes disabled")
	}

	push := service.NewPushDispatcher(directory, dataPusher, voipPusher)
	callService := service.NewCallService(calls, signals, push)
	relay := service.NewSignalRelay(calls, signals, push)
	poll := service.NewPollCoordinator(calls, signals, relay, push)
	auth := service.NewAuthGate(sessions, cfg.ServerKeys)

	h := handler.NewHandler(auth, callService, relay, poll, cfg.Debug)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", cfg.Addr).Str("db", store.Path()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}
	l.Info().Msg("Server exited")
}
