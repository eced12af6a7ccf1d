package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/festql/festql/internal/nl2sql"
	"github.com/festql/festql/internal/observability"
)

type queryRequest struct {
	Flow  string `json:"flow"`
	Query string `json:"query"`
}

type queryResponse struct {
	Data []map[string]any `json:"data"`
	Type string           `json:"type"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Events == nil || deps.Generator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	request, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	// Without the schema summary the model has nothing to anchor table and
	// column names on, so generation is refused rather than left to guess.
	if deps.Schema == "" {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SCHEMA_NOT_LOADED", "Service not ready: Schema not loaded.", true, nil)
		return
	}

	question := strings.TrimSpace(request.Query)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "Query text cannot be empty.", false, nil)
		return
	}

	generateStart := time.Now()
	result := deps.Generator.Generate(r.Context(), nl2sql.Request{
		Flow:     request.Flow,
		Question: question,
		Schema:   deps.Schema,
	})
	observability.ObserveGeneration(flowLabel(request.Flow), string(result.Outcome), time.Since(generateStart))
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "generated sql",
			slog.String("flow", flowLabel(request.Flow)),
			slog.String("outcome", string(result.Outcome)),
			slog.String("sql", result.SQL),
		)
	}

	rows, err := deps.Events.RunQuery(r.Context(), result.SQL)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "query execution failed",
				slog.String("sql", result.SQL),
				slog.Any("error", err),
			)
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_EXECUTION_FAILED", "An internal server error occurred.", true, nil)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Data: rows, Type: flowLabel(request.Flow)})
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return queryRequest{}, false
	}
	return request, true
}

// flowLabel collapses the request flow onto the two response types the
// frontends understand. Anything that is not the detail flow is a list.
func flowLabel(flow string) string {
	if flow == nl2sql.FlowEventDetails {
		return "detail"
	}
	return "list"
}
