package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/festql/festql/internal/observability"
)

// errorEnvelope is the uniform error body every route returns. The trace
// ID lets a frontend error report be matched to server logs.
type errorEnvelope struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Context   map[string]any `json:"context"`
	TraceID   string         `json:"trace_id"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, errorEnvelope{
		ErrorCode: code,
		Message:   message,
		Retryable: retryable,
		Context:   extra,
		TraceID:   observability.TraceIDFromContext(ctx),
	})
}
