// Package api exposes the festival query service over HTTP: the natural
// language query route, the source sync and archive export triggers, and the
// operational endpoints around them.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/festql/festql/internal/airtable"
	"github.com/festql/festql/internal/archive"
	"github.com/festql/festql/internal/config"
	"github.com/festql/festql/internal/events"
	"github.com/festql/festql/internal/nl2sql"
	"github.com/festql/festql/internal/observability"
)

type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Events            events.Repository
	Generator         nl2sql.Generator
	Source            airtable.Source
	Archive           *archive.Exporter
	// Schema is the startup-cached schema summary fed into prompts. Empty
	// means the summary could not be loaded and the query route answers 503.
	Schema string
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout(deps.DependencyTimeout))
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Both deployed frontends post questions, one to the root and one to
	// /query, so the query operation answers on both paths.
	mux.HandleFunc("POST /{$}", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("GET /api/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/sync", func(w http.ResponseWriter, r *http.Request) {
		handleSync(deps, w, r)
	})
	protected.HandleFunc("POST /api/export", func(w http.ResponseWriter, r *http.Request) {
		handleExport(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if deps.AuthMiddleware != nil {
		protectedHandler = deps.AuthMiddleware(protectedHandler)
	}
	mux.Handle("POST /api/sync", protectedHandler)
	mux.Handle("POST /api/export", protectedHandler)

	mux.Handle("GET /{$}", consoleHandler())

	middlewares := []func(http.Handler) http.Handler{
		corsMiddleware(cfg.CORS.AllowedOrigins),
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseURL(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.URL == "" {
			return errors.New("database url is not configured")
		}
		return nil
	}
}

func CheckEventsRepository(repo events.Repository) ReadinessCheck {
	return func(ctx context.Context) error {
		if repo == nil {
			return errors.New("events repository is not configured")
		}
		return repo.HealthCheck(ctx)
	}
}

// CombineReadinessChecks runs checks in order and stops at the first
// failure. Nil checks are skipped.
func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func readinessTimeout(configured time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return 2 * time.Second
}

func chain(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
