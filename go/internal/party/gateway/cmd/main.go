package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/partyroom/go/internal/config"
	"github.com/mcdev12/partyroom/go/internal/party/gateway"
	"github.com/mcdev12/partyroom/go/internal/party/presets"
	"github.com/mcdev12/partyroom/go/internal/party/reconciler"
	"github.com/mcdev12/partyroom/go/internal/party/room"
	"github.com/mcdev12/partyroom/go/internal/party/service"
	"github.com/mcdev12/partyroom/go/internal/party/sweeper"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	cfg := config.FromEnv()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().
		Str("port", cfg.Port).
		Dur("grace_period", cfg.GracePeriod).
		Int("max_players", cfg.MaxPlayers).
		Msg("starting party gateway")

	// Preset item pools
	library := presets.Builtin()
	if cfg.PresetsPath != "" {
		var err error
		library, err = presets.LoadFile(cfg.PresetsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PresetsPath).Msg("failed to load preset pools")
		}
	}

	clock := clockwork.NewRealClock()
	store := room.NewStore(clock, cfg.MaxPlayers)
	svc := service.New(store, library)

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	// Router and reconciler reference each other: the router hands
	// disconnects to the reconciler, the reconciler reports removals back
	// through the router.
	var router *gateway.Router
	rec := reconciler.New(store, notifierFunc(func(res room.RemoveResult, state room.GameState, reason string) {
		router.NotifyPlayerRemoved(res, state, reason)
	}), clock, cfg.GracePeriod, cfg.PendingCapacity)
	router = gateway.NewRouter(svc, cm, rec)

	gatewayService := gateway.NewService(cm, router, svc, rec)

	// Setup HTTP server
	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // WebSocket connections outlive any write deadline
		IdleTimeout:  120 * time.Second,
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	sw := sweeper.New(store, clock, cfg.SweepInterval, cfg.IdleRoomTTL)
	go sw.Run(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	// Give services time to clean up
	time.Sleep(1 * time.Second)

	log.Info().Msg("party gateway shutdown complete")
}

// notifierFunc adapts a function to the reconciler.Notifier interface.
type notifierFunc func(res room.RemoveResult, state room.GameState, reason string)

func (f notifierFunc) NotifyPlayerRemoved(res room.RemoveResult, state room.GameState, reason string) {
	f(res, state, reason)
}
