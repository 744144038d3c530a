// Package sync is the orchestrator: it decides full vs. incremental mode,
// fetches the current catalog, diffs it against the previous snapshot,
// fans the delta out over a bounded worker pool, reconciles orphans and
// persists the new snapshot.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mpannell/strmsync/internal/artifacts"
	"github.com/mpannell/strmsync/internal/config"
	"github.com/mpannell/strmsync/internal/delta"
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/snapshot"
	"github.com/mpannell/strmsync/internal/store"
	"github.com/mpannell/strmsync/internal/websocket"
)

// ErrAlreadyRunning is returned when a run is triggered while another is
// still active. Triggers are rejected, never queued.
var ErrAlreadyRunning = errors.New("sync already in progress")

// Catalog is the upstream surface the orchestrator needs. Satisfied by
// *xtream.Client.
type Catalog interface {
	Source() string
	VodCategories(ctx context.Context) ([]models.Category, error)
	SeriesCategories(ctx context.Context) ([]models.Category, error)
	VodStreams(ctx context.Context, categoryID int64) ([]models.CatalogItem, error)
	Series(ctx context.Context, categoryID int64) ([]models.CatalogItem, error)
	SeriesInfo(ctx context.Context, seriesID int64) (*models.SeriesListing, error)
	MovieURL(id int64, extension string) string
	EpisodeURL(id int64, extension string) string
}

// Service runs catalog synchronisations, one at a time.
type Service struct {
	cfg       *config.Config
	catalog   Catalog
	snapshots *snapshot.Store
	writer    *artifacts.Writer
	st        *store.Store
	hub       *websocket.Hub

	mu         gosync.Mutex
	running    bool
	cancelRun  context.CancelFunc
	progress   *tracker
	lastResult *models.SyncResult
}

// NewService wires the orchestrator. hub may be nil (CLI usage).
func NewService(cfg *config.Config, catalog Catalog, snapshots *snapshot.Store, writer *artifacts.Writer, st *store.Store, hub *websocket.Hub) *Service {
	return &Service{
		cfg:       cfg,
		catalog:   catalog,
		snapshots: snapshots,
		writer:    writer,
		st:        st,
		hub:       hub,
	}
}

// RunAsync starts a run in the background and returns its id immediately.
// The run is bound to its own context, never to any caller's connection;
// only Cancel stops it.
func (s *Service) RunAsync() (string, error) {
	runID, runCtx, err := s.begin()
	if err != nil {
		return "", err
	}
	go s.execute(runCtx, runID)
	return runID, nil
}

// Run performs a synchronous run, used by the CLI binary and the scheduler.
// Cancelling ctx cancels the run.
func (s *Service) Run(ctx context.Context) (*models.SyncResult, error) {
	runID, runCtx, err := s.beginWith(ctx)
	if err != nil {
		return nil, err
	}
	return s.execute(runCtx, runID), nil
}

// Cancel requests cancellation of the active run. It reports whether a run
// was active.
func (s *Service) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancelRun == nil {
		return false
	}
	s.cancelRun()
	return true
}

// Progress returns the live view of the active run, or the final counters
// of the last one.
func (s *Service) Progress() models.SyncProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil {
		return models.SyncProgress{Phase: PhaseIdle}
	}
	return s.progress.snapshot()
}

// LastResult returns the most recent completed run result, or nil before
// the first run finishes.
func (s *Service) LastResult() *models.SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Reset clears all persisted sync state, forcing the next run to be a full
// sync from an empty baseline. Rejected while a run is active.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	if err := s.snapshots.Clear(); err != nil {
		return err
	}
	return s.st.ClearFailedItems()
}

func (s *Service) begin() (string, context.Context, error) {
	return s.beginWith(context.Background())
}

func (s *Service) beginWith(parent context.Context) (string, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return "", nil, ErrAlreadyRunning
	}
	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(parent)
	s.running = true
	s.cancelRun = cancel
	s.progress = newTracker(runID, s.hub)
	return runID, runCtx, nil
}

func (s *Service) end(result *models.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}
	s.running = false
	s.lastResult = result
	s.progress.finish()
}

// execute drives one run through its phases and always returns a result.
func (s *Service) execute(ctx context.Context, runID string) *models.SyncResult {
	t := s.progress
	result := &models.SyncResult{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		result.ErrorCount = int(t.errors.Load())
		if err := s.st.FinishRun(result); err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to record run result")
		}
		s.end(result)
		log.Info().
			Str("run_id", runID).
			Str("status", string(result.Status)).
			Bool("incremental", result.Incremental).
			Int("errors", result.ErrorCount).
			Msg("Sync run finished")
	}()

	if err := s.st.CreateRun(runID, false, result.StartedAt); err != nil {
		result.Status = models.RunStatusFailed
		result.FatalError = err.Error()
		return result
	}

	// Deciding mode.
	t.setPhase(PhaseDeciding)
	prev := s.snapshots.Load()
	full, reason := s.decideMode(prev)
	result.Incremental = !full
	log.Info().Str("run_id", runID).Bool("full", full).Str("reason", reason).Msg("Sync run started")

	// The failed-item list describes the previous run; this run rebuilds it.
	if err := s.st.ClearFailedItems(); err != nil {
		log.Warn().Err(err).Msg("Failed to clear failed items")
	}

	// Fetching.
	t.setPhase(PhaseFetching)
	cat, err := s.fetchCatalog(ctx, t, prev)
	if ctx.Err() != nil {
		result.Status = models.RunStatusCancelled
		return result
	}
	if err != nil {
		result.Status = models.RunStatusFailed
		result.FatalError = err.Error()
		return result
	}

	// Diffing.
	t.setPhase(PhaseDiffing)
	var prevMovies, prevSeries map[int64]snapshot.Entry
	if prev != nil {
		prevMovies = prev.Entries(models.ItemTypeMovie)
		prevSeries = prev.Entries(models.ItemTypeSeries)
	}
	movieDelta := delta.Compute(cat.movies, prevMovies)
	seriesDelta := delta.Compute(cat.series, prevSeries)
	combined := delta.Merge(movieDelta.Stats, seriesDelta.Stats)

	if !full && combined.ChangePercentage > s.cfg.Sync.ChangeThresholdPct {
		// Implausibly large change for an incremental run; reprocess
		// everything rather than trusting the delta.
		log.Warn().
			Float64("change_pct", combined.ChangePercentage).
			Float64("threshold_pct", s.cfg.Sync.ChangeThresholdPct).
			Msg("Change threshold exceeded, escalating to full reprocess")
		full = true
		result.Incremental = false
		result.ThresholdExceeded = true
	}

	// Processing.
	t.setPhase(PhaseProcessing)
	newSnap := snapshot.New(s.catalog.Source())
	collector := &snapshotCollector{snap: newSnap}

	// Unchanged items never reach the pool on an incremental run, but their
	// last-known state still belongs in the new snapshot.
	if !full {
		carryUnchanged(collector, cat.movies, prevMovies, models.ItemTypeMovie)
		carryUnchanged(collector, cat.series, prevSeries, models.ItemTypeSeries)
		t.skipped.Add(int64(movieDelta.Stats.UnchangedItems))
		result.Movies.Skipped = movieDelta.Stats.UnchangedItems
		t.skipped.Add(int64(seriesDelta.Stats.UnchangedItems))
		result.Series.Skipped = seriesDelta.Stats.UnchangedItems
	}

	movieWork, seriesWork := buildWorkSets(full, cat, movieDelta, seriesDelta, prevMovies, prevSeries)
	t.itemsTotal.Store(int64(len(movieWork) + len(seriesWork)))

	s.processItems(ctx, t, runID, result, collector, cat, movieWork, seriesWork)
	if ctx.Err() != nil {
		result.Status = models.RunStatusCancelled
		return result
	}

	// Reconciling orphans.
	t.setPhase(PhaseReconciling)
	s.reconcileOrphans(ctx, t, result, prev, movieDelta.Removed, seriesDelta.Removed)
	if ctx.Err() != nil {
		result.Status = models.RunStatusCancelled
		return result
	}

	// Persisting.
	t.setPhase(PhasePersisting)
	if err := s.snapshots.Save(newSnap); err != nil {
		result.Status = models.RunStatusFailed
		result.FatalError = fmt.Sprintf("failed to persist snapshot: %v", err)
		return result
	}

	result.Status = models.RunStatusSuccess
	result.FailedItems = s.listFailures()
	return result
}

// decideMode reports whether this run must be a full sync and why.
func (s *Service) decideMode(prev *snapshot.ContentSnapshot) (bool, string) {
	switch {
	case prev == nil:
		return true, "no previous snapshot"
	case prev.Source != s.catalog.Source():
		return true, "provider source changed"
	case prev.Age() > s.cfg.FullSyncInterval():
		return true, "snapshot older than full sync interval"
	default:
		return false, "incremental"
	}
}

func (s *Service) listFailures() []models.FailedItem {
	items, err := s.st.ListFailedItems()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list failed items")
		return nil
	}
	return items
}

// snapshotCollector serialises concurrent Put calls from the worker pool.
type snapshotCollector struct {
	mu   gosync.Mutex
	snap *snapshot.ContentSnapshot
}

func (c *snapshotCollector) put(itemType models.ItemType, e snapshot.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Put(itemType, e)
}

// carryUnchanged copies the previous snapshot entries of unchanged current
// items into the new snapshot.
func carryUnchanged(c *snapshotCollector, current []delta.Item, prev map[int64]snapshot.Entry, itemType models.ItemType) {
	for _, item := range current {
		if e, ok := prev[item.ID]; ok && e.Checksum == item.Checksum && (itemType != models.ItemTypeSeries || e.EpisodeCount == item.EpisodeCount) {
			c.put(itemType, e)
		}
	}
}

// buildWorkSets selects the items the pool will process. Incremental runs
// process new+modified only; full runs reprocess every current item but keep
// the delta classification for the result counters.
func buildWorkSets(full bool, cat *fetchedCatalog, movieDelta, seriesDelta delta.Delta, prevMovies, prevSeries map[int64]snapshot.Entry) ([]workItem, []workItem) {
	classify := func(d delta.Delta) map[int64]outcomeKind {
		kinds := make(map[int64]outcomeKind, len(d.New)+len(d.Modified))
		for _, it := range d.New {
			kinds[it.ID] = outcomeCreated
		}
		for _, it := range d.Modified {
			kinds[it.ID] = outcomeUpdated
		}
		return kinds
	}
	movieKinds := classify(movieDelta)
	seriesKinds := classify(seriesDelta)

	build := func(d delta.Delta, all []delta.Item, kinds map[int64]outcomeKind, prev map[int64]snapshot.Entry) []workItem {
		var items []delta.Item
		if full {
			items = all
		} else {
			items = append(append([]delta.Item{}, d.New...), d.Modified...)
		}
		work := make([]workItem, 0, len(items))
		for _, it := range items {
			kind, ok := kinds[it.ID]
			if !ok {
				// Unchanged item swept up by a full reprocess.
				kind = outcomeSkipped
			}
			w := workItem{item: it, kind: kind}
			if e, ok := prev[it.ID]; ok {
				w.prevEntry = &e
			}
			work = append(work, w)
		}
		return work
	}
	return build(movieDelta, cat.movies, movieKinds, prevMovies), build(seriesDelta, cat.series, seriesKinds, prevSeries)
}
