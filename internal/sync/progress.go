package sync

import (
	"sync/atomic"

	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/websocket"
)

// Run phases, in order of appearance.
const (
	PhaseIdle        = "idle"
	PhaseDeciding    = "deciding"
	PhaseFetching    = "fetching"
	PhaseDiffing     = "diffing"
	PhaseProcessing  = "processing"
	PhaseReconciling = "reconciling"
	PhasePersisting  = "persisting"
)

// tracker carries the live counters of one run. Workers mutate the counters
// concurrently; progress polls read them without locking, so every field is
// atomic and readers only ever see monotonically advancing counts.
type tracker struct {
	runID string
	hub   *websocket.Hub

	phase               atomic.Value // string
	itemsProcessed      atomic.Int64
	itemsTotal          atomic.Int64
	categoriesProcessed atomic.Int64
	categoriesTotal     atomic.Int64
	created             atomic.Int64
	updated             atomic.Int64
	deleted             atomic.Int64
	skipped             atomic.Int64
	errors              atomic.Int64
	running             atomic.Bool
}

func newTracker(runID string, hub *websocket.Hub) *tracker {
	t := &tracker{runID: runID, hub: hub}
	t.phase.Store(PhaseIdle)
	t.running.Store(true)
	return t
}

func (t *tracker) setPhase(phase string) {
	t.phase.Store(phase)
	t.broadcast(phase, false)
}

func (t *tracker) itemDone() {
	n := t.itemsProcessed.Add(1)
	// Broadcasting every single item floods slow clients on large catalogs.
	if n%25 == 0 || n == t.itemsTotal.Load() {
		t.broadcast(t.phase.Load().(string), false)
	}
}

func (t *tracker) finish() {
	t.running.Store(false)
	t.broadcast(PhaseIdle, true)
}

func (t *tracker) snapshot() models.SyncProgress {
	p := models.SyncProgress{
		RunID:               t.runID,
		Phase:               t.phase.Load().(string),
		ItemsProcessed:      t.itemsProcessed.Load(),
		ItemsTotal:          t.itemsTotal.Load(),
		CategoriesProcessed: t.categoriesProcessed.Load(),
		CategoriesTotal:     t.categoriesTotal.Load(),
		Created:             t.created.Load(),
		Updated:             t.updated.Load(),
		Deleted:             t.deleted.Load(),
		Skipped:             t.skipped.Load(),
		Errors:              t.errors.Load(),
		Running:             t.running.Load(),
	}
	if p.ItemsTotal > 0 {
		p.Percent = float64(p.ItemsProcessed) / float64(p.ItemsTotal) * 100
	}
	return p
}

func (t *tracker) broadcast(phase string, done bool) {
	if t.hub == nil {
		return
	}
	p := t.snapshot()
	t.hub.BroadcastJSON(models.ProgressUpdate{
		RunID:    t.runID,
		Phase:    phase,
		Message:  phase,
		Progress: p.Percent,
		Done:     done,
	})
}
