package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/delta"
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/snapshot"
)

// fetchedCatalog is the deduplicated current catalog, with the episode
// inventories fetched alongside the series listings so that checksums can
// include episode counts and processing never refetches.
type fetchedCatalog struct {
	movies   []delta.Item
	series   []delta.Item
	episodes map[int64]*models.SeriesListing
}

// fetchCatalog lists the full current catalog. Any category-level listing
// failure is fatal to the run; a failed per-series episode lookup degrades
// that one series instead (carried forward when previously known, surfaced
// as a per-item failure during processing when new).
func (s *Service) fetchCatalog(ctx context.Context, t *tracker, prev *snapshot.ContentSnapshot) (*fetchedCatalog, error) {
	vodCats, err := s.catalog.VodCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movie categories: %w", err)
	}
	seriesCats, err := s.catalog.SeriesCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list series categories: %w", err)
	}
	t.categoriesTotal.Store(int64(len(vodCats) + len(seriesCats)))

	var rawMovies []delta.Item
	for _, c := range vodCats {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		items, err := s.catalog.VodStreams(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list movies of category %d: %w", c.ID, err)
		}
		for _, ci := range items {
			rawMovies = append(rawMovies, delta.NewItem(ci, 0))
		}
		t.categoriesProcessed.Add(1)
	}

	var rawSeries []delta.Item
	for _, c := range seriesCats {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		items, err := s.catalog.Series(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list series of category %d: %w", c.ID, err)
		}
		for _, ci := range items {
			// Placeholder checksum; recomputed below once the episode
			// inventory is known.
			rawSeries = append(rawSeries, delta.Item{CatalogItem: ci})
		}
		t.categoriesProcessed.Add(1)
	}

	var prevSeries map[int64]snapshot.Entry
	if prev != nil {
		prevSeries = prev.Entries(models.ItemTypeSeries)
	}

	cat := &fetchedCatalog{
		movies:   delta.Dedup(rawMovies),
		episodes: make(map[int64]*models.SeriesListing),
	}
	for _, raw := range delta.Dedup(rawSeries) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		listing, err := s.catalog.SeriesInfo(ctx, raw.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int64("series_id", raw.ID).Str("name", raw.Name).
				Msg("Failed to fetch episode inventory")
			if e, ok := prevSeries[raw.ID]; ok {
				// Known series; keep its last state rather than letting it
				// look removed or churn the artifact tree.
				cat.series = append(cat.series, delta.Item{
					CatalogItem:  raw.CatalogItem,
					EpisodeCount: e.EpisodeCount,
					Checksum:     e.Checksum,
				})
			} else {
				cat.series = append(cat.series, delta.NewItem(raw.CatalogItem, 0))
			}
			continue
		}
		cat.episodes[raw.ID] = listing
		cat.series = append(cat.series, delta.NewItem(raw.CatalogItem, listing.EpisodeCount()))
	}
	return cat, nil
}
