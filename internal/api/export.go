package api

import (
	"log/slog"
	"net/http"

	"github.com/festql/festql/internal/observability"
)

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", "archive export is not configured", false, nil)
		return
	}

	result, err := deps.Archive.Export(r.Context())
	observability.ObserveArchiveExport(result.Events, err)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "archive export failed", slog.Any("error", err))
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "archive export failed", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"object": result.Key,
		"count":  result.Events,
	})
}
