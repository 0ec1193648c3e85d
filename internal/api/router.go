package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Train arrival: launches a loading session
		r.Post("/trains", s.handleTrainArrival)

		// Wagon record endpoints
		r.Route("/wagons", func(r chi.Router) {
			r.Get("/", s.handleListWagons)
			r.Post("/", s.handleCreateWagon)
			r.Get("/{id}", s.handleGetWagon)
		})

		// Loading session history
		r.Get("/sessions", s.handleListSessions)

		// Dispatch records
		r.Route("/dispatches", func(r chi.Router) {
			r.Get("/", s.handleListDispatches)
			r.Post("/", s.handleCreateDispatch)
		})

		// Whole-system reset
		r.Post("/system/reset", s.handleSystemReset)

		// WebSocket dashboard feed
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
