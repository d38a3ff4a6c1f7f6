// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/feattree/internal/api"
	"github.com/starford/feattree/internal/catalog"
	"github.com/starford/feattree/internal/mcpserver"
	"github.com/starford/feattree/internal/sse"
	"github.com/starford/feattree/internal/storage"
	"github.com/starford/feattree/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeStdio, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// stdout carries the MCP transport, so only the HTTP mode logs there.
	var out io.Writer = os.Stderr
	if app.mode == ModeHTTP {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	paths, err := ResolvePaths(cfg.Project)
	if err != nil {
		return fmt.Errorf("resolve project: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("project_root", paths.Root),
		slog.String("database", paths.Database),
		slog.String("sqlite_driver", cfg.SQLite.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	docs, err := storage.NewFS(paths.Dir)
	if err != nil {
		return fmt.Errorf("init project dir: %w", err)
	}

	switch app.mode {
	case ModeStdio:
		svc := catalog.NewService(catalog.FileOpener(cfg.SQLite.Driver, paths.Database), docs, logger,
			catalog.WithInfo(paths.Info()))
		return mcpserver.New(svc, app.version, logger).ServeStdio()
	case ModeRender:
		svc := catalog.NewService(catalog.FileOpener(cfg.SQLite.Driver, paths.Database), docs, logger)
		written, err := svc.Regenerate(ctx)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		logger.Info("Documents rendered", slog.Any("written", written))
		return nil
	case ModeReindex:
		svc := catalog.NewService(catalog.FileOpener(cfg.SQLite.Driver, paths.Database), docs, logger)
		if err := svc.Reindex(ctx); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		logger.Info("Search indexes rebuilt")
		return nil
	case ModeHTTP:
		return serveHTTP(ctx, cfg, paths, docs, logger)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

func serveHTTP(ctx context.Context, cfg *Config, paths Paths, docs storage.Provider, logger *slog.Logger) error {
	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := catalog.NewService(catalog.FileOpener(cfg.SQLite.Driver, paths.Database), docs, logger,
		catalog.WithInfo(paths.Info()),
		catalog.WithObserver(broker.PublishChange))

	// Bring the documents up to date with whatever the database holds.
	if _, err := svc.Regenerate(ctx); err != nil {
		logger.Warn("initial render failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Info(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Outside writers (the stdio server of an agent session) show up here.
	g.Go(func() error {
		return watch.New(docs.Root(), cfg.Project.DBFile, svc, logger, broker.PublishChange).Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
