package models

import "time"

// RunStatus is the terminal state of a sync run. Cancellation is its own
// status so callers never have to treat a user-requested stop as a failure.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSuccess   RunStatus = "success"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// TypeCounts aggregates per-item outcomes for one content type.
type TypeCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// SyncResult is the outcome of a completed run. It is held in memory until
// the next run overwrites it and is also recorded in the run history table.
type SyncResult struct {
	RunID       string     `json:"run_id"`
	Status      RunStatus  `json:"status"`
	Incremental bool       `json:"incremental"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
	Movies      TypeCounts `json:"movies"`
	Series      TypeCounts `json:"series"`
	ErrorCount  int        `json:"error_count"`
	// FatalError is set only when the run aborted before completion.
	FatalError string `json:"fatal_error,omitempty"`
	// ThresholdExceeded reports that the change-percentage guard escalated
	// this run to a full reprocess. Informational, not an error.
	ThresholdExceeded bool `json:"threshold_exceeded,omitempty"`
	// DeletesSkipped reports that orphan deletion was suppressed because too
	// large a fraction of the library would have been removed.
	DeletesSkipped bool         `json:"deletes_skipped,omitempty"`
	FailedItems    []FailedItem `json:"failed_items,omitempty"`
}

// FailedItem carries enough identity to retry one item later without
// re-deriving it from the original catalog listing.
type FailedItem struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Type       ItemType  `json:"type"`
	ItemID     int64     `json:"item_id"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"category_id"`
	Extension  string    `json:"extension,omitempty"`
	Error      string    `json:"error"`
	FailedAt   time.Time `json:"failed_at"`
}

// SyncRun is one row of the persisted run history.
type SyncRun struct {
	ID                string     `json:"id"`
	Status            RunStatus  `json:"status"`
	Incremental       bool       `json:"incremental"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Movies            TypeCounts `json:"movies"`
	Series            TypeCounts `json:"series"`
	ErrorCount        int        `json:"error_count"`
	FatalError        string     `json:"fatal_error,omitempty"`
	ThresholdExceeded bool       `json:"threshold_exceeded"`
	DeletesSkipped    bool       `json:"deletes_skipped"`
}
