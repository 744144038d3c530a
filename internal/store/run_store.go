package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mpannell/strmsync/internal/models"
)

// CreateRun inserts a new history row in the running state.
func (s *Store) CreateRun(runID string, incremental bool, startedAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO sync_runs (id, status, incremental, started_at) VALUES (?, ?, ?, ?)",
		runID, models.RunStatusRunning, incremental, startedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state and counters of a run.
func (s *Store) FinishRun(result *models.SyncResult) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs SET
			status = ?, incremental = ?, finished_at = ?,
			movies_created = ?, movies_updated = ?, movies_deleted = ?, movies_skipped = ?,
			series_created = ?, series_updated = ?, series_deleted = ?, series_skipped = ?,
			error_count = ?, fatal_error = ?, threshold_exceeded = ?, deletes_skipped = ?
		WHERE id = ?`,
		result.Status, result.Incremental, result.FinishedAt,
		result.Movies.Created, result.Movies.Updated, result.Movies.Deleted, result.Movies.Skipped,
		result.Series.Created, result.Series.Updated, result.Series.Deleted, result.Series.Skipped,
		result.ErrorCount, nullString(result.FatalError), result.ThresholdExceeded, result.DeletesSkipped,
		result.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sync run %s: %w", result.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, status, incremental, started_at, finished_at,
			movies_created, movies_updated, movies_deleted, movies_skipped,
			series_created, series_updated, series_deleted, series_skipped,
			error_count, fatal_error, threshold_exceeded, deletes_skipped
		FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one history row, or sql.ErrNoRows when unknown.
func (s *Store) GetRun(runID string) (*models.SyncRun, error) {
	row := s.db.QueryRow(`
		SELECT id, status, incremental, started_at, finished_at,
			movies_created, movies_updated, movies_deleted, movies_skipped,
			series_created, series_updated, series_deleted, series_skipped,
			error_count, fatal_error, threshold_exceeded, deletes_skipped
		FROM sync_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.SyncRun, error) {
	var run models.SyncRun
	var finishedAt sql.NullTime
	var fatalError sql.NullString
	err := row.Scan(
		&run.ID, &run.Status, &run.Incremental, &run.StartedAt, &finishedAt,
		&run.Movies.Created, &run.Movies.Updated, &run.Movies.Deleted, &run.Movies.Skipped,
		&run.Series.Created, &run.Series.Updated, &run.Series.Deleted, &run.Series.Skipped,
		&run.ErrorCount, &fatalError, &run.ThresholdExceeded, &run.DeletesSkipped,
	)
	if err != nil {
		return run, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	run.FatalError = fatalError.String
	return run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
