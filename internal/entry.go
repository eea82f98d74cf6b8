// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/storyloom/internal/api"
	"github.com/starford/storyloom/internal/editor"
	"github.com/starford/storyloom/internal/index"
	"github.com/starford/storyloom/internal/mcpserver"
	"github.com/starford/storyloom/internal/sse"
	"github.com/starford/storyloom/internal/storage"
	"github.com/starford/storyloom/internal/storyservice"
)

// library is the storage and index pair shared by Run and RunMCP.
type library struct {
	store storage.Provider
	db    *index.DB
}

func openLibrary(cfg *Config, logger *slog.Logger) (*library, error) {
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return &library{store: store, db: db}, nil
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("auth_enabled", cfg.Auth.AuthEnabled()),
		slog.Int("max_sessions", cfg.Sessions.Max),
		slog.String("log_level", cfg.App.LogLevel.String()))

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.db.Close()

	broker := sse.NewBroker(cfg.SSE.LibraryThrottle)
	defer broker.Close()

	svc := storyservice.NewService(lib.store, lib.db, editor.NewManager(cfg.Sessions.Max))
	svc.SetSessionNotifier(broker)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher: external edits reach the index and SSE clients.
	g.Go(func() error {
		if err := index.Watch(gCtx, lib.db, lib.store, cfg.Library.Path, logger, broker.PublishStoryEvent); err != nil {
			logger.Warn("file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr unless
// WithLogOutput says otherwise, since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger()

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.db.Close()

	svc := storyservice.NewService(lib.store, lib.db, editor.NewManager(cfg.Sessions.Max))
	srv := mcpserver.New(svc, app.version)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(watchCtx, lib.db, lib.store, cfg.Library.Path, logger, nil); err != nil {
			logger.Warn("file watcher stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Starting MCP server on stdio", slog.String("library_path", cfg.Library.Path))
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
