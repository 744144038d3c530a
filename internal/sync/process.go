package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/artifacts"
	"github.com/mpannell/strmsync/internal/delta"
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/snapshot"
)

type outcomeKind int

const (
	outcomeCreated outcomeKind = iota
	outcomeUpdated
	// outcomeSkipped marks an unchanged item swept up by a full reprocess;
	// its artifacts are verified but the result counts it as skipped.
	outcomeSkipped
)

type workItem struct {
	item      delta.Item
	kind      outcomeKind
	prevEntry *snapshot.Entry
}

// processItems drains both work sets through bounded worker pools, movies
// first. Workers write disjoint files, so the artifact tree needs no lock.
func (s *Service) processItems(ctx context.Context, t *tracker, runID string, result *models.SyncResult, collector *snapshotCollector, cat *fetchedCatalog, movieWork, seriesWork []workItem) {
	s.runPool(ctx, t, runID, collector, cat, movieWork, models.ItemTypeMovie, &result.Movies)
	if ctx.Err() != nil {
		return
	}
	s.runPool(ctx, t, runID, collector, cat, seriesWork, models.ItemTypeSeries, &result.Series)
}

func (s *Service) runPool(ctx context.Context, t *tracker, runID string, collector *snapshotCollector, cat *fetchedCatalog, work []workItem, itemType models.ItemType, counts *models.TypeCounts) {
	if len(work) == 0 {
		return
	}
	workers := s.cfg.Sync.Workers
	if workers <= 0 {
		workers = 8
	}
	if workers > len(work) {
		workers = len(work)
	}

	var created, updated, skipped atomic.Int64
	jobs := make(chan workItem)
	var wg gosync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := s.processOne(collector, cat, itemType, w); err != nil {
					t.errors.Add(1)
					s.recordFailure(runID, itemType, w.item, err)
				} else {
					switch w.kind {
					case outcomeCreated:
						created.Add(1)
						t.created.Add(1)
					case outcomeUpdated:
						updated.Add(1)
						t.updated.Add(1)
					case outcomeSkipped:
						skipped.Add(1)
						t.skipped.Add(1)
					}
				}
				t.itemDone()
			}
		}()
	}
	for _, w := range work {
		if ctx.Err() != nil {
			break
		}
		jobs <- w
	}
	close(jobs)
	wg.Wait()

	counts.Created += int(created.Load())
	counts.Updated += int(updated.Load())
	counts.Skipped += int(skipped.Load())
}

func (s *Service) processOne(collector *snapshotCollector, cat *fetchedCatalog, itemType models.ItemType, w workItem) error {
	if itemType == models.ItemTypeMovie {
		return s.processMovie(collector, w)
	}
	return s.processSeries(collector, cat, w)
}

func (s *Service) processMovie(collector *snapshotCollector, w workItem) error {
	item := w.item.CatalogItem
	rel := artifacts.MovieStrmPath(item)
	content := s.catalog.MovieURL(item.ID, item.Extension)
	if err := s.writer.WriteOrUpdate(rel, []byte(content)); err != nil {
		return err
	}
	if s.cfg.Library.WriteNFO {
		if doc, err := artifacts.MovieNFO(item); err == nil {
			if err := s.writer.WriteOrUpdate(artifacts.MovieNFOPath(item), doc); err != nil {
				log.Warn().Err(err).Str("name", item.Name).Msg("Failed to write movie NFO")
			}
		}
	}
	collector.put(models.ItemTypeMovie, snapshot.Entry{
		ID:           item.ID,
		Name:         item.Name,
		CategoryID:   item.CategoryID,
		Extension:    item.Extension,
		CoverURL:     item.CoverURL,
		ArtifactPath: artifacts.MovieDir(item),
		Checksum:     w.item.Checksum,
	})
	return nil
}

func (s *Service) processSeries(collector *snapshotCollector, cat *fetchedCatalog, w workItem) error {
	item := w.item.CatalogItem
	listing := cat.episodes[item.ID]
	if listing == nil {
		if w.prevEntry != nil {
			// Episode inventory was unavailable this run; keep the series
			// exactly as it was.
			collector.put(models.ItemTypeSeries, *w.prevEntry)
			return nil
		}
		return fmt.Errorf("episode inventory unavailable for series %d", item.ID)
	}

	expected := make(map[string]bool)
	for _, eps := range listing.Seasons {
		for _, ep := range eps {
			rel := artifacts.EpisodeStrmPath(item, ep)
			content := s.catalog.EpisodeURL(ep.ID, ep.Extension)
			if err := s.writer.WriteOrUpdate(rel, []byte(content)); err != nil {
				return err
			}
			expected[rel] = true
		}
	}

	if s.cfg.Library.WriteNFO {
		if doc, err := artifacts.TVShowNFO(item); err == nil {
			if err := s.writer.WriteOrUpdate(artifacts.TVShowNFOPath(item), doc); err != nil {
				log.Warn().Err(err).Str("name", item.Name).Msg("Failed to write tvshow NFO")
			}
		}
	}

	// Episodes dropped upstream leave stale pointer files behind; clear
	// them out of this series' own directory.
	existing, err := s.writer.ListStrmUnder(artifacts.SeriesDir(item))
	if err == nil {
		for _, rel := range existing {
			if expected[rel] {
				continue
			}
			if err := s.writer.Delete(rel); err != nil {
				log.Warn().Err(err).Str("path", rel).Msg("Failed to remove stale episode")
				continue
			}
			if err := s.writer.PruneEmptyDirs(rel); err != nil {
				log.Warn().Err(err).Str("path", rel).Msg("Failed to prune season directory")
			}
		}
	}

	collector.put(models.ItemTypeSeries, snapshot.Entry{
		ID:           item.ID,
		Name:         item.Name,
		CategoryID:   item.CategoryID,
		Extension:    item.Extension,
		CoverURL:     item.CoverURL,
		EpisodeCount: listing.EpisodeCount(),
		ArtifactPath: artifacts.SeriesDir(item),
		Checksum:     w.item.Checksum,
	})
	return nil
}
