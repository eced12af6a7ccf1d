package api

import (
	"net/http"
)

// handleSchema reads the live column listing rather than the startup cache so
// operators can see what the prompts would look like after a migration.
func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Events == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "events repository is not configured", false, nil)
		return
	}

	summary, err := deps.Events.SchemaSummary(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema summary", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"schema": summary})
}
