package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/festql/festql/internal/events"
	"github.com/festql/festql/internal/observability"
)

const syncRunHeader = "X-Sync-Run"

type syncResponse struct {
	Message string `json:"message"`
}

// handleSync pulls every record from the source and upserts the batch. The
// reported count follows the fetched records, not the written rows, so a
// frontend shows the same number the source currently holds.
func handleSync(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Events == nil || deps.Source == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SYNC_NOT_CONFIGURED", "sync dependencies are not configured", false, nil)
		return
	}

	runID := uuid.New().String()
	w.Header().Set(syncRunHeader, runID)
	logger := deps.Logger
	if logger != nil {
		logger = logger.With(slog.String("sync_run", runID))
	}

	syncStart := time.Now()
	records, err := deps.Source.FetchAll(r.Context())
	if err != nil {
		observability.ObserveSyncRun(0, 0, time.Since(syncStart), err)
		if logger != nil {
			logger.ErrorContext(r.Context(), "source fetch failed", slog.Any("error", err))
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SYNC_FAILED", "sync run failed", true, map[string]any{"details": err.Error()})
		return
	}

	batch := events.MapRecords(records)
	written, err := deps.Events.UpsertBatch(r.Context(), batch)
	observability.ObserveSyncRun(len(records), written, time.Since(syncStart), err)
	if err != nil {
		if logger != nil {
			logger.ErrorContext(r.Context(), "event upsert failed", slog.Any("error", err))
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "SYNC_FAILED", "sync run failed", true, map[string]any{"details": err.Error()})
		return
	}

	if logger != nil {
		logger.InfoContext(r.Context(), "sync run completed",
			slog.Int("fetched", len(records)),
			slog.Int("mapped", len(batch)),
			slog.Int("written", written),
			slog.String("duration", time.Since(syncStart).String()),
		)
	}

	writeJSON(w, http.StatusOK, syncResponse{Message: fmt.Sprintf("Synced %d records.", len(records))})
}
