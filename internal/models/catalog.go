package models

import "time"

// ItemType distinguishes the two synchronised content types.
type ItemType string

const (
	ItemTypeMovie  ItemType = "movie"
	ItemTypeSeries ItemType = "series"
)

// Category is a provider-side grouping of catalog items.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CatalogItem is a single movie or series as reported by the provider.
// The provider may list the same id under several categories; identity is
// always the id alone.
type CatalogItem struct {
	ID         int64    `json:"id"`
	Type       ItemType `json:"type"`
	Name       string   `json:"name"`
	CategoryID int64    `json:"category_id"`
	// Extension is the container/format of the playable stream (e.g. "mkv").
	Extension string `json:"extension,omitempty"`
	// CoverURL rotates freely on provider CDNs and never participates in
	// change detection.
	CoverURL string     `json:"cover_url,omitempty"`
	AddedAt  *time.Time `json:"added_at,omitempty"`
	// LastModified is only reported for series.
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// Episode is one playable entry of a series season.
type Episode struct {
	ID        int64  `json:"id"`
	SeriesID  int64  `json:"series_id"`
	Season    int    `json:"season"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Extension string `json:"extension,omitempty"`
}

// SeriesListing is the full episode inventory of one series, keyed by season.
type SeriesListing struct {
	SeriesID int64             `json:"series_id"`
	Seasons  map[int][]Episode `json:"seasons"`
}

// EpisodeCount returns the total number of episodes across all seasons.
func (l *SeriesListing) EpisodeCount() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, eps := range l.Seasons {
		n += len(eps)
	}
	return n
}
