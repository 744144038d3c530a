package models

// SyncProgress is a frequently overwritten view of an in-flight run, read by
// progress-polling callers while workers mutate the underlying counters.
type SyncProgress struct {
	RunID               string  `json:"run_id"`
	Phase               string  `json:"phase"`
	ItemsProcessed      int64   `json:"items_processed"`
	ItemsTotal          int64   `json:"items_total"`
	CategoriesProcessed int64   `json:"categories_processed"`
	CategoriesTotal     int64   `json:"categories_total"`
	Created             int64   `json:"created"`
	Updated             int64   `json:"updated"`
	Deleted             int64   `json:"deleted"`
	Skipped             int64   `json:"skipped"`
	Errors              int64   `json:"errors"`
	Percent             float64 `json:"percent"`
	Running             bool    `json:"running"`
}

// ProgressUpdate is the payload broadcast over the websocket hub whenever a
// run advances.
type ProgressUpdate struct {
	RunID    string  `json:"run_id"`
	Phase    string  `json:"phase"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Done     bool    `json:"done"`
}
