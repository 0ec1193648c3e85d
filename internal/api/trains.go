package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/grainline/wagonloader/internal/loading"
	"github.com/grainline/wagonloader/internal/trainservice"
)

// handleTrainArrival accepts a train notification and launches a loading
// session for its siding.
//
// The request body is the raw train payload; "siding" and "max_bags" are
// extracted for the scheduler and the whole payload is forwarded to the
// train service. The response is 202 Accepted: loading runs in the
// background and the caller never waits for it.
func (s *Server) handleTrainArrival(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	siding, ok := payload["siding"].(string)
	if !ok || siding == "" {
		writeBadRequest(w, "siding is required")
		return
	}

	maxBags, ok := intField(payload, "max_bags")
	if !ok {
		writeBadRequest(w, "max_bags must be an integer")
		return
	}

	sessionID, err := s.launcher.Launch(r.Context(), loading.LaunchRequest{
		Siding:  siding,
		MaxBags: maxBags,
		Payload: payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, loading.ErrInvalidSiding), errors.Is(err, loading.ErrInvalidMaxBags):
			writeBadRequest(w, err.Error())
		case errors.Is(err, trainservice.ErrRegistrationRejected):
			writeBadGateway(w, err.Error())
		default:
			s.logger.Error("failed to launch loading session", "siding", siding, "error", err)
			writeInternalError(w, "failed to launch loading session")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "launched",
		"session_id": sessionID,
		"siding":     siding,
		"max_bags":   maxBags,
	})
}

// intField extracts an integral JSON number from a decoded payload.
// JSON numbers decode as float64; fractional values are rejected.
func intField(payload map[string]any, key string) (int, bool) {
	raw, ok := payload[key]
	if !ok {
		return 0, false
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
