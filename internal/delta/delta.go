// Package delta classifies the current catalog against the previous snapshot
// into new, modified, removed and unchanged buckets.
package delta

import (
	"github.com/mpannell/strmsync/internal/models"
	"github.com/mpannell/strmsync/internal/snapshot"
)

// Item is one deduplicated catalog item together with its derived secondary
// cardinality and fingerprint, ready for classification.
type Item struct {
	models.CatalogItem
	// EpisodeCount is the derived episode total for series; 0 for movies.
	EpisodeCount int
	Checksum     string
}

// Statistics aggregates a delta. TotalItems counts the deduplicated current
// catalog; ChangePercentage is (new+modified+removed)/(total+removed)*100 so
// that removals weigh into the denominator as well.
type Statistics struct {
	TotalItems       int     `json:"total_items"`
	NewItems         int     `json:"new_items"`
	ModifiedItems    int     `json:"modified_items"`
	RemovedItems     int     `json:"removed_items"`
	UnchangedItems   int     `json:"unchanged_items"`
	ChangePercentage float64 `json:"change_percentage"`
}

// Delta is the classification result for one content type.
type Delta struct {
	New      []Item     `json:"new"`
	Modified []Item     `json:"modified"`
	Removed  []int64    `json:"removed"`
	Stats    Statistics `json:"stats"`
}

// NewItem builds a classified item from a catalog record and its episode
// count, computing the fingerprint.
func NewItem(ci models.CatalogItem, episodeCount int) Item {
	return Item{
		CatalogItem:  ci,
		EpisodeCount: episodeCount,
		Checksum:     snapshot.Checksum(ci, episodeCount),
	}
}

// Dedup collapses raw catalog input to one item per id. Providers list the
// same id under several categories; the last occurrence wins for content,
// identity is the id alone.
func Dedup(items []Item) []Item {
	seen := make(map[int64]int, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if idx, ok := seen[item.ID]; ok {
			out[idx] = item
			continue
		}
		seen[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}

// Compute classifies current items against the previous snapshot entries.
// prev may be nil (no prior snapshot): every item is new and removed is
// empty. Input is deduplicated by id before any counting.
func Compute(current []Item, prev map[int64]snapshot.Entry) Delta {
	current = Dedup(current)

	var d Delta
	if len(prev) == 0 {
		d.New = current
	} else {
		currentIDs := make(map[int64]struct{}, len(current))
		for _, item := range current {
			currentIDs[item.ID] = struct{}{}

			entry, ok := prev[item.ID]
			switch {
			case !ok:
				d.New = append(d.New, item)
			case entry.Checksum != item.Checksum:
				d.Modified = append(d.Modified, item)
			case item.Type == models.ItemTypeSeries && entry.EpisodeCount != item.EpisodeCount:
				// An older snapshot may carry a checksum that predates the
				// episode count; a count drift alone still means modified.
				d.Modified = append(d.Modified, item)
			default:
				d.Stats.UnchangedItems++
			}
		}

		for id := range prev {
			if _, ok := currentIDs[id]; !ok {
				d.Removed = append(d.Removed, id)
			}
		}
	}

	d.Stats.NewItems = len(d.New)
	d.Stats.ModifiedItems = len(d.Modified)
	d.Stats.RemovedItems = len(d.Removed)
	d.Stats.TotalItems = len(current)
	d.Stats.ChangePercentage = changePercentage(d.Stats)
	return d
}

func changePercentage(s Statistics) float64 {
	denominator := s.TotalItems + s.RemovedItems
	if denominator == 0 {
		return 0
	}
	changed := s.NewItems + s.ModifiedItems + s.RemovedItems
	return float64(changed) / float64(denominator) * 100
}

// Merge sums two independently computed statistics field-wise, recomputing
// the change percentage over the combined totals.
func Merge(a, b Statistics) Statistics {
	merged := Statistics{
		TotalItems:     a.TotalItems + b.TotalItems,
		NewItems:       a.NewItems + b.NewItems,
		ModifiedItems:  a.ModifiedItems + b.ModifiedItems,
		RemovedItems:   a.RemovedItems + b.RemovedItems,
		UnchangedItems: a.UnchangedItems + b.UnchangedItems,
	}
	merged.ChangePercentage = changePercentage(merged)
	return merged
}
