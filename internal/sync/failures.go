package sync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/artifacts"
	"github.com/mpannell/strmsync/internal/delta"
	"github.com/mpannell/strmsync/internal/models"
)

// ErrNothingToRetry is returned by the retry entry points when no failed
// items are recorded.
var ErrNothingToRetry = errors.New("nothing to retry")

func (s *Service) recordFailure(runID string, itemType models.ItemType, item delta.Item, cause error) {
	log.Warn().Err(cause).
		Str("run_id", runID).
		Str("type", string(itemType)).
		Int64("item_id", item.ID).
		Str("name", item.Name).
		Msg("Item failed")
	fi := models.FailedItem{
		RunID:      runID,
		Type:       itemType,
		ItemID:     item.ID,
		Name:       item.Name,
		CategoryID: item.CategoryID,
		Extension:  item.Extension,
		Error:      cause.Error(),
		FailedAt:   time.Now().UTC(),
	}
	if err := s.st.UpsertFailedItem(fi); err != nil {
		log.Error().Err(err).Int64("item_id", item.ID).Msg("Failed to persist failed item")
	}
}

// FailedItems returns the persisted failures from the last runs.
func (s *Service) FailedItems() ([]models.FailedItem, error) {
	return s.st.ListFailedItems()
}

// RetryFailedAsync re-attempts the stored failed items in the background.
// Returns ErrNothingToRetry when the failed list is empty and
// ErrAlreadyRunning while a run is active.
func (s *Service) RetryFailedAsync() (string, error) {
	items, err := s.st.ListFailedItems()
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", ErrNothingToRetry
	}
	runID, runCtx, err := s.begin()
	if err != nil {
		return "", err
	}
	go s.executeRetry(runCtx, runID, items)
	return runID, nil
}

// RetryFailed re-attempts the stored failed items synchronously.
func (s *Service) RetryFailed(ctx context.Context) (*models.SyncResult, error) {
	items, err := s.st.ListFailedItems()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNothingToRetry
	}
	runID, runCtx, err := s.beginWith(ctx)
	if err != nil {
		return nil, err
	}
	return s.executeRetry(runCtx, runID, items), nil
}

// executeRetry re-attempts exactly the stored items, without a catalog
// refetch. Successes leave the failed list; repeated failures stay on it
// with the fresh error.
func (s *Service) executeRetry(ctx context.Context, runID string, items []models.FailedItem) *models.SyncResult {
	t := s.progress
	result := &models.SyncResult{
		RunID:       runID,
		Incremental: true,
		StartedAt:   time.Now().UTC(),
	}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		result.ErrorCount = int(t.errors.Load())
		if err := s.st.FinishRun(result); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to record retry result")
		}
		s.end(result)
		log.Info().
			Str("run_id", runID).
			Str("status", string(result.Status)).
			Int("errors", result.ErrorCount).
			Msg("Retry run finished")
	}()

	if err := s.st.CreateRun(runID, true, result.StartedAt); err != nil {
		result.Status = models.RunStatusFailed
		result.FatalError = err.Error()
		return result
	}

	t.setPhase(PhaseProcessing)
	t.itemsTotal.Store(int64(len(items)))

	for _, fi := range items {
		if ctx.Err() != nil {
			result.Status = models.RunStatusCancelled
			return result
		}
		err := s.retryItem(ctx, fi)
		if err != nil {
			t.errors.Add(1)
			fi.RunID = runID
			fi.Error = err.Error()
			fi.FailedAt = time.Now().UTC()
			if dbErr := s.st.UpsertFailedItem(fi); dbErr != nil {
				log.Error().Err(dbErr).Int64("item_id", fi.ItemID).Msg("Failed to persist failed item")
			}
		} else {
			if dbErr := s.st.ResolveFailedItem(fi.Type, fi.ItemID); dbErr != nil {
				log.Warn().Err(dbErr).Int64("item_id", fi.ItemID).Msg("Failed to resolve failed item")
			}
			t.updated.Add(1)
			switch fi.Type {
			case models.ItemTypeMovie:
				result.Movies.Updated++
			case models.ItemTypeSeries:
				result.Series.Updated++
			}
		}
		t.itemDone()
	}

	result.Status = models.RunStatusSuccess
	result.FailedItems = s.listFailures()
	return result
}

// retryItem rebuilds one item's artifacts from its stored identity.
func (s *Service) retryItem(ctx context.Context, fi models.FailedItem) error {
	item := models.CatalogItem{
		ID:         fi.ItemID,
		Type:       fi.Type,
		Name:       fi.Name,
		CategoryID: fi.CategoryID,
		Extension:  fi.Extension,
	}
	if fi.Type == models.ItemTypeMovie {
		content := s.catalog.MovieURL(item.ID, item.Extension)
		return s.writer.WriteOrUpdate(artifacts.MovieStrmPath(item), []byte(content))
	}

	// Series retries need the episode inventory again.
	listing, err := s.catalog.SeriesInfo(ctx, item.ID)
	if err != nil {
		return err
	}
	for _, eps := range listing.Seasons {
		for _, ep := range eps {
			content := s.catalog.EpisodeURL(ep.ID, ep.Extension)
			if err := s.writer.WriteOrUpdate(artifacts.EpisodeStrmPath(item, ep), []byte(content)); err != nil {
				return err
			}
		}
	}
	return nil
}
