package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/grainline/wagonloader/internal/wagon"
)

// createWagonRequest is the body for POST /wagons (track tower ingestion).
type createWagonRequest struct {
	Siding      string `json:"siding"`
	TowerNumber int    `json:"tower_number"`
}

// handleListWagons returns wagon records for a siding.
//
// Query parameters:
//   - siding: required, the siding to list
//   - pending: "true" restricts to wagons with loading outstanding
func (s *Server) handleListWagons(w http.ResponseWriter, r *http.Request) {
	siding := r.URL.Query().Get("siding")
	if siding == "" {
		writeBadRequest(w, "siding query parameter is required")
		return
	}

	var (
		records []wagon.Record
		err     error
	)
	if r.URL.Query().Get("pending") == "true" {
		records, err = s.wagons.ListPending(r.Context(), siding)
	} else {
		records, err = s.wagons.ListBySiding(r.Context(), siding)
	}
	if err != nil {
		s.logger.Error("failed to list wagons", "siding", siding, "error", err)
		writeInternalError(w, "failed to list wagons")
		return
	}

	if records == nil {
		records = []wagon.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"wagons": records,
		"count":  len(records),
	})
}

// handleGetWagon returns a single wagon record by ID.
func (s *Server) handleGetWagon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid wagon id")
		return
	}

	record, err := s.wagons.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, wagon.ErrWagonNotFound) {
			writeNotFound(w, "wagon not found")
			return
		}
		s.logger.Error("failed to get wagon", "id", id, "error", err)
		writeInternalError(w, "failed to get wagon")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleCreateWagon registers a wagon parked on a siding.
//
// This is the ingestion path used by track tower reporting: the record
// starts pending with a zero bag count and no display number.
func (s *Server) handleCreateWagon(w http.ResponseWriter, r *http.Request) {
	var req createWagonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	record := &wagon.Record{
		Siding:      req.Siding,
		TowerNumber: req.TowerNumber,
	}
	if err := s.wagons.Create(r.Context(), record); err != nil {
		if errors.Is(err, wagon.ErrInvalidRecord) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("failed to create wagon", "siding", req.Siding, "error", err)
		writeInternalError(w, "failed to create wagon")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}
