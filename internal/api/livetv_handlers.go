package api

import (
	"net/http"
)

func (s *Server) handleLivePlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.app.Live.Playlist(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to build playlist")
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Write(playlist)
}

func (s *Server) handleLiveEPG(w http.ResponseWriter, r *http.Request) {
	guide, err := s.app.Live.EPG(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to build programme guide")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(guide)
}
