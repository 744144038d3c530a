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

	"github.com/mpannell/strmsync/internal/api"
	"github.com/mpannell/strmsync/internal/config"
	"github.com/mpannell/strmsync/internal/core"
	"github.com/mpannell/strmsync/internal/jobs"
)

var version = "dev"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error during application setup")
	}
	defer app.Close()

	if level, err := zerolog.ParseLevel(app.Config.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Pick up config.yml edits without a restart.
	config.Watch()

	// Kick off a sync on startup, then hand the cadence to the scheduler.
	go func() {
		runID, err := app.Sync.RunAsync()
		if err != nil {
			log.Warn().Err(err).Msg("Startup sync could not be triggered")
			return
		}
		log.Info().Str("run_id", runID).Msg("Startup sync triggered")
	}()
	scheduler := jobs.Start(app)
	defer scheduler.Stop()

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Info().Str("addr", addr).Msg("Starting web server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Could not start server")
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// A run in flight is asked to stop; it records itself as cancelled.
	app.Sync.Cancel()

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting.")
}
