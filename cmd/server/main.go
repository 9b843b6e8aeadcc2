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

	router "huddle/internal/adapters/http"
	"huddle/internal/app"
	"huddle/internal/app/media"
	"huddle/internal/app/orch"
	"huddle/internal/auth"
	"huddle/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret is required to sign session tokens")
	}

	reg := app.NewRegistry()
	rooms := app.NewRooms()

	o := &orch.Orchestrator{
		Registry:    reg,
		Rooms:       rooms,
		SettleDelay: cfg.SettleDelay,
	}

	// Co-located by default; a non-empty broadcast_url means the media
	// engine runs in another process and must cross HTTP to reach us.
	var bcast media.Broadcaster
	if cfg.BroadcastURL != "" {
		bcast = media.NewHTTPBroadcaster(cfg.BroadcastURL, cfg.BroadcastTimeout, cfg.BroadcastRetries)
	} else {
		bcast = o.LocalBroadcaster()
	}
	o.Media = media.NewCoordinator(bcast)

	codec := auth.NewTokenCodec([]byte(cfg.Secret))
	ids := auth.NewStaticStore()

	go o.RunRequestSweeper(ctx, cfg.RequestTTL, cfg.SweepInterval)

	r := router.SetupRouter(ctx, cfg, o, codec, ids)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
