package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"trialdesk/internal/fixture"
	"trialdesk/internal/platform/config"
	"trialdesk/internal/platform/httpserver"
	"trialdesk/internal/platform/logger"
)

// main runs the development participants API standalone so the sync client can
// be exercised without the real backend.
func main() {
	cfg := config.FixtureFromEnv()
	log := logger.New()

	api := fixture.New(cfg.JWTSigningKey, fixture.WithLogger(log))
	srv := httpserver.New(cfg.Addr, api)

	log.Info("starting participants api", slog.String("addr", cfg.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
}
