package sync

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/snapshot"
)

// reconcileOrphans deletes the artifacts of items that vanished from the
// catalog. Removed ids resolve to paths through the previous snapshot.
// Deletion is suppressed entirely when it would touch more than the
// configured fraction of the library, since a mass removal usually means an
// upstream outage rather than a real catalog change.
func (s *Service) reconcileOrphans(ctx context.Context, t *tracker, result *models.SyncResult, prev *snapshot.ContentSnapshot, removedMovies, removedSeries []int64) {
	if prev == nil || len(removedMovies)+len(removedSeries) == 0 {
		return
	}

	type orphan struct {
		path     string
		itemType models.ItemType
	}
	var orphans []orphan
	resolve := func(ids []int64, entries map[int64]snapshot.Entry, itemType models.ItemType) {
		for _, id := range ids {
			e, ok := entries[id]
			if !ok || e.ArtifactPath == "" {
				continue
			}
			orphans = append(orphans, orphan{path: e.ArtifactPath, itemType: itemType})
		}
	}
	resolve(removedMovies, prev.Entries(models.ItemTypeMovie), models.ItemTypeMovie)
	resolve(removedSeries, prev.Entries(models.ItemTypeSeries), models.ItemTypeSeries)
	if len(orphans) == 0 {
		return
	}

	existing, err := s.writer.ListExisting()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to inventory library, skipping orphan cleanup")
		return
	}

	candidates := 0
	for _, o := range orphans {
		candidates += s.writer.CountStrm(o.path)
	}
	if len(existing) > 0 {
		pct := float64(candidates) / float64(len(existing)) * 100
		if pct > s.cfg.Sync.DeleteThresholdPct {
			log.Warn().
				Int("candidates", candidates).
				Int("existing", len(existing)).
				Float64("pct", pct).
				Float64("threshold_pct", s.cfg.Sync.DeleteThresholdPct).
				Msg("Deletion threshold exceeded, keeping orphaned artifacts")
			result.DeletesSkipped = true
			return
		}
	}

	for _, o := range orphans {
		if ctx.Err() != nil {
			return
		}
		if err := s.writer.Delete(o.path); err != nil {
			log.Warn().Err(err).Str("path", o.path).Msg("Failed to delete orphaned artifact")
			continue
		}
		if err := s.writer.PruneEmptyDirs(o.path); err != nil {
			log.Warn().Err(err).Str("path", o.path).Msg("Failed to prune empty directories")
		}
		t.deleted.Add(1)
		switch o.itemType {
		case models.ItemTypeMovie:
			result.Movies.Deleted++
		case models.ItemTypeSeries:
			result.Series.Deleted++
		}
	}
}
