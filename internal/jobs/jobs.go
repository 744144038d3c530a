package jobs

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/core"
	"github.com/mpannell/strmsync/internal/sync"
)

// Start schedules the recurring catalog sync and returns the scheduler so
// the caller can stop it on shutdown.
func Start(app *core.App) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	scheduleCatalogSync(s, app)

	log.Info().Msg("Starting background job scheduler")
	s.StartAsync()
	return s
}

func scheduleCatalogSync(s *gocron.Scheduler, app *core.App) {
	interval := app.Config.Sync.Interval
	if interval == 0 {
		log.Info().Msg("Sync interval is 0, scheduled sync is disabled")
		return
	}

	log.Info().Int("interval_minutes", interval).Msg("Scheduling periodic catalog sync")

	_, err := s.Every(interval).Minutes().Do(func() {
		runID, err := app.Sync.RunAsync()
		if err != nil {
			// A manual run beat us to it; the next tick will catch up.
			if errors.Is(err, sync.ErrAlreadyRunning) {
				log.Warn().Msg("Scheduled sync skipped, a run is already in progress")
				return
			}
			log.Error().Err(err).Msg("Scheduled sync could not start")
			return
		}
		log.Info().Str("run_id", runID).Msg("Scheduler triggered catalog sync")
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to schedule catalog sync job")
	}
}
