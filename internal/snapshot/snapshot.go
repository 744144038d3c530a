// Package snapshot persists the last-known catalog state between sync runs.
// A snapshot is a single self-describing JSON document; the store keeps a
// small retention window of them and only ever loads complete ones.
package snapshot

import (
	"time"

	"github.com/mpannell/strmsync/internal/models"
)

// Version is bumped when the document layout changes incompatibly.
const Version = 1

// Entry is the last-known state of one catalog item.
type Entry struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	Extension  string `json:"extension,omitempty"`
	CoverURL   string `json:"cover_url,omitempty"`
	// EpisodeCount is only meaningful for series entries.
	EpisodeCount int `json:"episode_count,omitempty"`
	// ArtifactPath is where the item's artifact was written, relative to the
	// library root. Orphan cleanup resolves removed ids through it.
	ArtifactPath string `json:"artifact_path,omitempty"`
	Checksum     string `json:"checksum"`
}

// ContentSnapshot is the persisted catalog state as of the end of the last
// successful run.
type ContentSnapshot struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	// Source records the upstream base URL the snapshot was built from, so a
	// reconfigured provider is detected and forces a full run.
	Source      string           `json:"source"`
	Movies      map[int64]Entry  `json:"movies"`
	Series      map[int64]Entry  `json:"series"`
	MovieCount  int              `json:"movie_count"`
	SeriesCount int              `json:"series_count"`
	// IsComplete is flipped on as the final step of a save. A document
	// without it is a torn write and is never used as a delta baseline.
	IsComplete bool `json:"is_complete"`
}

// New returns an empty snapshot for the given upstream source.
func New(source string) *ContentSnapshot {
	return &ContentSnapshot{
		Version:   Version,
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Movies:    make(map[int64]Entry),
		Series:    make(map[int64]Entry),
	}
}

// Put records an entry under its id. Re-insertion under the same id always
// replaces the previous entry, matching the dedup-by-id invariant.
func (s *ContentSnapshot) Put(itemType models.ItemType, e Entry) {
	switch itemType {
	case models.ItemTypeSeries:
		s.Series[e.ID] = e
	default:
		s.Movies[e.ID] = e
	}
	s.MovieCount = len(s.Movies)
	s.SeriesCount = len(s.Series)
}

// Entries returns the map for the given content type.
func (s *ContentSnapshot) Entries(itemType models.ItemType) map[int64]Entry {
	if s == nil {
		return nil
	}
	if itemType == models.ItemTypeSeries {
		return s.Series
	}
	return s.Movies
}

// Age reports how long ago the snapshot was created.
func (s *ContentSnapshot) Age() time.Duration {
	return time.Since(s.CreatedAt)
}
