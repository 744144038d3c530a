// One-shot sync runner for cron jobs and manual invocations. Runs a single
// catalog sync against the configured provider and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/core"
	"github.com/mpannell/strmsync/internal/models"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	app, err := core.New("cli")
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error during application setup")
	}
	defer app.Close()

	if level, err := zerolog.ParseLevel(app.Config.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Ctrl-C cancels the run; it is recorded as cancelled, not failed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("library", app.Config.Library.Path).Msg("Starting catalog sync")

	result, err := app.Sync.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync could not start")
	}

	switch result.Status {
	case models.RunStatusSuccess:
		fmt.Printf("Sync finished: %d created, %d updated, %d deleted, %d skipped, %d errors\n",
			result.Movies.Created+result.Series.Created,
			result.Movies.Updated+result.Series.Updated,
			result.Movies.Deleted+result.Series.Deleted,
			result.Movies.Skipped+result.Series.Skipped,
			result.ErrorCount)
	case models.RunStatusCancelled:
		fmt.Println("Sync cancelled.")
		os.Exit(1)
	default:
		log.Error().Str("error", result.FatalError).Msg("Sync failed")
		os.Exit(1)
	}
}
