// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mpannell/strmsync/internal/core"
	"github.com/mpannell/strmsync/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	db    *sql.DB
	store *store.Store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		db:    app.DB,
		store: app.Store,
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/version", s.handleGetVersion)

	r.Route("/api/sync", func(r chi.Router) {
		r.Post("/run", s.handleRunSync)
		r.Post("/cancel", s.handleCancelSync)
		r.Get("/progress", s.handleGetProgress)
		r.Get("/result", s.handleGetResult)
		r.Get("/history", s.handleGetHistory)
		r.Get("/failed", s.handleGetFailedItems)
		r.Post("/retry", s.handleRetryFailed)
		r.Post("/reset", s.handleReset)
	})

	if s.app.Config.LiveTV.Enabled {
		r.Get("/livetv/playlist.m3u", s.handleLivePlaylist)
		r.Get("/livetv/epg.xml", s.handleLiveEPG)
	}

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}
