package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// PanelMovie is one VOD entry served by the fake panel.
type PanelMovie struct {
	ID         int64
	Name       string
	CategoryID int64
	Extension  string
	Cover      string
}

// PanelSeries is one series entry served by the fake panel, with its
// episode ids keyed by season number.
type PanelSeries struct {
	ID         int64
	Name       string
	CategoryID int64
	Cover      string
	Episodes   map[int][]int64
}

// FakePanel is an in-process Xtream-style upstream for tests. Its inventory
// can be mutated between sync runs to simulate catalog churn, and individual
// API actions can be forced to fail.
type FakePanel struct {
	Server *httptest.Server

	mu       sync.Mutex
	movies   []PanelMovie
	series   []PanelSeries
	latency  time.Duration
	failWith map[string]int // action -> HTTP status to return
	requests map[string]int // action -> call count
}

// NewFakePanel starts a fake panel server. It is shut down automatically
// when the test completes.
func NewFakePanel(t *testing.T) *FakePanel {
	t.Helper()
	p := &FakePanel{
		failWith: make(map[string]int),
		requests: make(map[string]int),
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the panel base URL.
func (p *FakePanel) URL() string { return p.Server.URL }

// SetMovies replaces the movie inventory.
func (p *FakePanel) SetMovies(movies ...PanelMovie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movies = movies
}

// SetSeries replaces the series inventory.
func (p *FakePanel) SetSeries(series ...PanelSeries) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series = series
}

// SetLatency delays every response, so tests can observe an in-flight run.
func (p *FakePanel) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// FailAction makes one API action return the given HTTP status.
func (p *FakePanel) FailAction(action string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith[action] = status
}

// ClearFailures restores normal behaviour for all actions.
func (p *FakePanel) ClearFailures() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = make(map[string]int)
}

// Requests returns how many times one action was called.
func (p *FakePanel) Requests(action string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[action]
}

func (p *FakePanel) handle(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")

	p.mu.Lock()
	p.requests[action]++
	status := p.failWith[action]
	latency := p.latency
	movies := append([]PanelMovie(nil), p.movies...)
	series := append([]PanelSeries(nil), p.series...)
	p.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	switch action {
	case "get_vod_categories":
		writeJSON(w, categoriesOf(movieCategoryIDs(movies)))
	case "get_series_categories":
		writeJSON(w, categoriesOf(seriesCategoryIDs(series)))
	case "get_live_categories":
		writeJSON(w, []any{})
	case "get_vod_streams":
		catID := r.URL.Query().Get("category_id")
		var out []map[string]any
		for _, m := range movies {
			if catID != "" && catID != fmt.Sprintf("%d", m.CategoryID) {
				continue
			}
			out = append(out, map[string]any{
				"stream_id":           m.ID,
				"name":                m.Name,
				"category_id":         fmt.Sprintf("%d", m.CategoryID),
				"container_extension": m.Extension,
				"stream_icon":         m.Cover,
			})
		}
		writeJSON(w, out)
	case "get_series":
		catID := r.URL.Query().Get("category_id")
		var out []map[string]any
		for _, s := range series {
			if catID != "" && catID != fmt.Sprintf("%d", s.CategoryID) {
				continue
			}
			out = append(out, map[string]any{
				"series_id":   s.ID,
				"name":        s.Name,
				"category_id": fmt.Sprintf("%d", s.CategoryID),
				"cover":       s.Cover,
			})
		}
		writeJSON(w, out)
	case "get_series_info":
		id := r.URL.Query().Get("series_id")
		for _, s := range series {
			if id != fmt.Sprintf("%d", s.ID) {
				continue
			}
			episodes := make(map[string][]map[string]any)
			for season, ids := range s.Episodes {
				key := fmt.Sprintf("%d", season)
				for i, epID := range ids {
					episodes[key] = append(episodes[key], map[string]any{
						"id":                  fmt.Sprintf("%d", epID),
						"episode_num":         i + 1,
						"title":               fmt.Sprintf("%s S%02dE%02d", s.Name, season, i+1),
						"container_extension": "mkv",
						"season":              season,
					})
				}
			}
			writeJSON(w, map[string]any{"episodes": episodes})
			return
		}
		writeJSON(w, map[string]any{"episodes": map[string]any{}})
	case "get_live_streams":
		writeJSON(w, []any{})
	case "get_simple_data_table":
		writeJSON(w, map[string]any{"epg_listings": []any{}})
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func categoriesOf(ids []int64) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{
			"category_id":   fmt.Sprintf("%d", id),
			"category_name": fmt.Sprintf("Category %d", id),
		})
	}
	return out
}

func movieCategoryIDs(movies []PanelMovie) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, m := range movies {
		if !seen[m.CategoryID] {
			seen[m.CategoryID] = true
			ids = append(ids, m.CategoryID)
		}
	}
	return ids
}

func seriesCategoryIDs(series []PanelSeries) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, s := range series {
		if !seen[s.CategoryID] {
			seen[s.CategoryID] = true
			ids = append(ids, s.CategoryID)
		}
	}
	return ids
}
