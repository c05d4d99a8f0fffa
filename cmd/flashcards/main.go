package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/config"
	"github.com/d-lef/flashcard-webapp/internal/connectivity"
	"github.com/d-lef/flashcard-webapp/internal/gateway"
	"github.com/d-lef/flashcard-webapp/internal/stats"
	"github.com/d-lef/flashcard-webapp/internal/storage"
	syncsvc "github.com/d-lef/flashcard-webapp/internal/sync"
	"github.com/d-lef/flashcard-webapp/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logger.Level)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	gw, err := newGateway(cfg.Gateway)
	if err != nil {
		return err
	}
	logger.Info("gateway ready", "kind", cfg.Gateway.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := connectivity.NewWatcher(gw, cfg.Sync.ProbeInterval, logger)
	go watcher.Run(ctx)

	writer := syncsvc.New(gw, db, watcher, logger,
		syncsvc.WithSettleDelay(cfg.Sync.SettleDelay))
	if err := writer.Restore(); err != nil {
		return err
	}

	aggregator := stats.New(gw, db, logger)

	srv := web.NewServer(gw, db, writer, aggregator, cfg.Server.StudyLimit, logger)
	srv.LoadInitialDecks()

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	// Last chance to replay deferred writes before the process dies.
	if err := writer.Flush(shutdownCtx); err != nil {
		logger.Warn("final flush failed", "error", err)
	}
	return nil
}

func newGateway(cfg config.GatewayConfig) (gateway.Gateway, error) {
	switch cfg.Kind {
	case "sqlite":
		return gateway.OpenSQLite(cfg.DSN)
	case "http":
		return gateway.NewHTTP(cfg.BaseURL, cfg.Timeout), nil
	}
	return nil, fmt.Errorf("unknown gateway kind %q", cfg.Kind)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
