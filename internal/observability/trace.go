package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const traceHeaderName = "X-Trace-ID"

type traceContextKey struct{}

// TraceMiddleware tags every request with a trace ID: the caller's
// X-Trace-ID when present, a fresh one otherwise. The ID rides the request
// context and is echoed back in the response header so clients can quote it
// when reporting a failure.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(traceHeaderName))
		if id == "" {
			id = newTraceID()
		}
		w.Header().Set(traceHeaderName, id)
		next.ServeHTTP(w, r.WithContext(ContextWithTraceID(r.Context(), id)))
	})
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceContextKey{}, traceID)
}

// TraceIDFromContext returns the request's trace ID, or "" outside a traced
// request.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceContextKey{}).(string)
	return id
}

func newTraceID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Monotonic fallback; collisions only matter for log correlation.
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}
