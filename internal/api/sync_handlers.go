package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/mpannell/strmsync/internal/sync"
)

// handleRunSync triggers a background run. A run already in progress is
// rejected, never queued.
func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	runID, err := s.app.Sync.RunAsync()
	if err != nil {
		if errors.Is(err, sync.ErrAlreadyRunning) {
			RespondWithError(w, http.StatusConflict, "sync already in progress")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleCancelSync(w http.ResponseWriter, r *http.Request) {
	if !s.app.Sync.Cancel() {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "nothing to cancel"})
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Sync.Progress())
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result := s.app.Sync.LastResult()
	if result == nil {
		RespondWithError(w, http.StatusNotFound, "no sync has completed yet")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list sync runs")
		return
	}
	RespondWithJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetFailedItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListFailedItems()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list failed items")
		return
	}
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	runID, err := s.app.Sync.RetryFailedAsync()
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrNothingToRetry):
			RespondWithJSON(w, http.StatusOK, map[string]string{"status": "nothing to retry"})
		case errors.Is(err, sync.ErrAlreadyRunning):
			RespondWithError(w, http.StatusConflict, "sync already in progress")
		default:
			RespondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// handleReset clears the snapshots and the failed-item list so the next run
// is a full sync from an empty baseline.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Sync.Reset(); err != nil {
		if errors.Is(err, sync.ErrAlreadyRunning) {
			RespondWithError(w, http.StatusConflict, "sync already in progress")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
