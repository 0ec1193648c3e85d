package api

import (
	"net/http"
	"strconv"

	"github.com/grainline/wagonloader/internal/loading"
)

// defaultSessionLimit caps the session history response when no limit is given.
const defaultSessionLimit = 100

// handleListSessions returns loading session history, newest first.
//
// Query parameters:
//   - siding: optional, restricts to one siding
//   - limit: optional, maximum number of sessions (default 100)
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeNotFound(w, "session history not available")
		return
	}

	siding := r.URL.Query().Get("siding")

	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	sessions, err := s.sessions.List(r.Context(), siding, limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	if sessions == nil {
		sessions = []loading.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
