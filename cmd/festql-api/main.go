package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/festql/festql/internal/airtable"
	"github.com/festql/festql/internal/api"
	"github.com/festql/festql/internal/archive"
	"github.com/festql/festql/internal/auth"
	"github.com/festql/festql/internal/config"
	eventspostgres "github.com/festql/festql/internal/events/postgres"
	"github.com/festql/festql/internal/migrations"
	"github.com/festql/festql/internal/nl2sql"
	"github.com/festql/festql/internal/observability"
	s3store "github.com/festql/festql/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("festql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := eventspostgres.Open(context.Background(), eventspostgres.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open events db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	applied, err := migrations.NewRunner().Up(startupCtx, db, 0)
	if err != nil {
		cancel()
		logger.Error("failed to migrate events db", slog.Any("error", err))
		os.Exit(1)
	}
	if applied > 0 {
		logger.Info("applied migrations", slog.Int("count", applied))
	}

	repo := eventspostgres.NewRepository(db)

	// The schema summary is loaded once and fed into every prompt. An empty
	// summary keeps the query route at 503 until the service restarts.
	schema, err := repo.SchemaSummary(startupCtx)
	cancel()
	if err != nil {
		logger.Warn("failed to load schema summary", slog.Any("error", err))
		schema = ""
	}
	if schema == "" {
		logger.Warn("schema summary is empty, query route answers 503")
	}

	var source airtable.Source
	if cfg.Airtable.Token != "" {
		client, err := airtable.New(airtable.Config{
			Token:    cfg.Airtable.Token,
			BaseID:   cfg.Airtable.BaseID,
			Table:    cfg.Airtable.Table,
			BaseURL:  cfg.Airtable.BaseURL,
			PageSize: cfg.Airtable.PageSize,
			Timeout:  cfg.Airtable.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize airtable client", slog.Any("error", err))
			os.Exit(1)
		}
		source = client
	}

	var generator nl2sql.Generator
	if cfg.Gemini.APIKey != "" {
		model, err := nl2sql.NewGeminiClient(nl2sql.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.Gemini.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize gemini client", slog.Any("error", err))
			os.Exit(1)
		}
		generator = nl2sql.NewPromptGenerator(model, logger)
	}

	var exporter *archive.Exporter
	if cfg.Archive.Enabled {
		store, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		exporter, err = archive.NewExporter(store, repo, logger)
		if err != nil {
			logger.Error("failed to initialize archive exporter", slog.Any("error", err))
			os.Exit(1)
		}
	}

	deps := api.Dependencies{
		Logger:    logger,
		Events:    repo,
		Generator: generator,
		Source:    source,
		Archive:   exporter,
		Schema:    schema,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseURL(cfg),
			api.CheckEventsRepository(repo),
		),
		DependencyTimeout: time.Second,
	}
	validator := auth.NewStaticKeyValidator(cfg.Auth.StaticKeys)
	if validator.Enabled() {
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
