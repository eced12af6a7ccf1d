package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/festql/festql/internal/observability"
)

const apiKeyHeader = "X-API-Key"

// Middleware guards the protected API surface. Clients present a key via
// X-API-Key or an Authorization bearer token; anything else gets the
// standard 401 envelope.
func Middleware(logger *slog.Logger, validator Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFrom(r)
			switch {
			case key == "":
				deny(w, r, "missing API key")
			case !validator.Validate(r.Context(), key):
				if logger != nil {
					logger.WarnContext(r.Context(), "authentication failed",
						slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
						slog.String("path", r.URL.Path),
					)
				}
				deny(w, r, "invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func apiKeyFrom(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(strings.TrimSpace(r.Header.Get("Authorization")), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func deny(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
		TraceID   string `json:"trace_id"`
	}{
		ErrorCode: "UNAUTHORIZED",
		Message:   message,
		TraceID:   observability.TraceIDFromContext(r.Context()),
	})
}
