// Package observability carries the service's logging, request tracing,
// and Prometheus instrumentation. Everything here is wiring: handlers and
// binaries inject the logger and wrap themselves in the middleware, and the
// rest of the codebase stays unaware of how requests are observed.
package observability

import (
	"io"
	"log/slog"

	"github.com/festql/festql/internal/config"
)

// NewLogger builds the process logger from the observability config. Every
// line carries the service name and profile so multi-service log streams
// stay attributable.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel}

	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}
