package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// resetConfirmation is the exact confirmation string required for a reset.
const resetConfirmation = "YES"

// resetRequest is the body for POST /system/reset.
type resetRequest struct {
	Confirm string `json:"confirm"`
}

// handleSystemReset wipes all wagon, session, and dispatch records and
// restarts the wagon identity sequence.
//
// The operation is destructive and irreversible, so it requires an explicit
// {"confirm":"YES"} body. All tables are purged in a single transaction: a
// reset either happens completely or not at all.
func (s *Server) handleSystemReset(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeNotFound(w, "system reset not available")
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Confirm != resetConfirmation {
		writeBadRequest(w, `reset requires {"confirm":"YES"}`)
		return
	}

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		s.logger.Error("failed to start reset transaction", "error", err)
		writeInternalError(w, "failed to reset system")
		return
	}

	statements := []string{
		`DELETE FROM wagon_records`,
		`DELETE FROM loading_sessions`,
		`DELETE FROM dispatch_records`,
		`DELETE FROM sqlite_sequence WHERE name = 'wagon_records'`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(r.Context(), stmt); err != nil {
			// sqlite_sequence only exists after the first AUTOINCREMENT insert.
			if strings.Contains(err.Error(), "no such table: sqlite_sequence") {
				continue
			}
			//nolint:errcheck // Rollback error is secondary to the exec failure
			tx.Rollback()
			s.logger.Error("failed to purge table during reset", "error", err)
			writeInternalError(w, "failed to reset system")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit reset transaction", "error", err)
		writeInternalError(w, "failed to reset system")
		return
	}

	s.logger.Warn("system reset performed", "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reset",
	})
}
