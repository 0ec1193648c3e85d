package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/grainline/wagonloader/internal/dispatch"
)

// defaultDispatchLimit caps the dispatch history response when no limit is given.
const defaultDispatchLimit = 100

// createDispatchRequest is the body for POST /dispatches.
type createDispatchRequest struct {
	Siding      string  `json:"siding"`
	WagonNumber string  `json:"wagon_number"`
	Destination *string `json:"destination,omitempty"`
}

// handleListDispatches returns dispatch records, newest first.
//
// Query parameters:
//   - siding: optional, restricts to one siding
//   - limit: optional, maximum number of records (default 100)
func (s *Server) handleListDispatches(w http.ResponseWriter, r *http.Request) {
	if s.dispatches == nil {
		writeNotFound(w, "dispatch history not available")
		return
	}

	siding := r.URL.Query().Get("siding")

	limit := defaultDispatchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.dispatches.List(r.Context(), siding, limit)
	if err != nil {
		s.logger.Error("failed to list dispatches", "error", err)
		writeInternalError(w, "failed to list dispatches")
		return
	}

	if records == nil {
		records = []dispatch.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dispatches": records,
		"count":      len(records),
	})
}

// handleCreateDispatch logs a loaded wagon leaving a siding.
func (s *Server) handleCreateDispatch(w http.ResponseWriter, r *http.Request) {
	if s.dispatches == nil {
		writeNotFound(w, "dispatch history not available")
		return
	}

	var req createDispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	record := &dispatch.Record{
		Siding:      req.Siding,
		WagonNumber: req.WagonNumber,
		Destination: req.Destination,
	}
	if err := s.dispatches.Create(r.Context(), record); err != nil {
		if errors.Is(err, dispatch.ErrInvalidRecord) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create dispatch record", "siding", req.Siding, "error", err)
		writeInternalError(w, "failed to create dispatch record")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}
