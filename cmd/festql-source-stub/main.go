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

	"github.com/festql/festql/internal/demo/source"
)

func main() {
	cfg, err := source.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load source stub config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	stub, err := source.NewServer(cfg)
	if err != nil {
		logger.Error("failed to initialize source stub", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(
			"source stub started",
			slog.String("addr", cfg.ListenAddr),
			slog.String("base_id", cfg.BaseID),
			slog.String("table", cfg.Table),
			slog.Int("records", stub.RecordCount()),
			slog.Int64("seed", cfg.Seed),
			slog.Bool("auth", cfg.Token != ""),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("source stub failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down source stub")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
