package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// LoggingMiddleware emits one line per completed request. It runs inside
// TraceMiddleware so the trace ID is already on the context.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			meter := newResponseMeter(w)
			start := time.Now()
			next.ServeHTTP(meter, r)

			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", meter.code),
				slog.Int("bytes", meter.written),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("trace_id", TraceIDFromContext(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// MetricsMiddleware feeds the request counter and latency histogram.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meter := newResponseMeter(w)
		start := time.Now()
		next.ServeHTTP(meter, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(meter.code)).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// responseMeter records the status code and body size a handler produced.
type responseMeter struct {
	http.ResponseWriter
	code    int
	written int
}

func newResponseMeter(w http.ResponseWriter) *responseMeter {
	return &responseMeter{ResponseWriter: w, code: http.StatusOK}
}

func (m *responseMeter) WriteHeader(code int) {
	m.code = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(body []byte) (int, error) {
	n, err := m.ResponseWriter.Write(body)
	m.written += n
	return n, err
}

func (m *responseMeter) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}
