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
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/assetstore"
	"github.com/starford/raido/internal/bundle"
	"github.com/starford/raido/internal/capability"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/tourservice"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, closeAssets, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAssets()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start project file watcher with SSE callback.
	g.Go(func() error {
		err := tourservice.Watch(gCtx, svc, cfg.Workspace.Path, logger, func() {
			broker.Publish(sse.Event{Type: "project.updated"})
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// buildService wires storage, the asset store, and the normalization
// pipeline into a tour service. The returned func closes the asset store.
func buildService(cfg *Config, logger *slog.Logger) (*tourservice.Service, func(), error) {
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	assets, err := assetstore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init asset store: %w", err)
	}

	cap := capability.Resolve(capability.Static(cfg.Renderer.MaxTextureSize))
	logger.Info("Renderer capability resolved",
		slog.Int("configured", cfg.Renderer.MaxTextureSize),
		slog.Int("safe_max_dimension", cap.SafeMaxDimension()))

	norm := pipeline.New(cap, pipeline.Options{
		Encoding: cfg.Export.Encoding,
		Quality:  cfg.Export.Quality,
	})

	svc, err := tourservice.NewService(store, assets, norm)
	if err != nil {
		assets.Close()
		return nil, nil, fmt.Errorf("load project: %w", err)
	}
	return svc, func() { assets.Close() }, nil
}

// RunMCP starts the MCP stdio server instead of the HTTP server. Logs go to
// stderr because stdout carries the protocol stream.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, closeAssets, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAssets()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

// RunExport builds a bundle from the command line without starting a
// server. An empty target writes the default layout into the workspace;
// otherwise the target is a filesystem path: a directory receives the full
// file set, a path ending in .html receives the single self-contained page.
func RunExport(ctx context.Context, cfg *Config, target string, singleFile bool) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, closeAssets, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAssets()

	if target == "" {
		files, err := svc.Export(ctx, "", singleFile)
		if err != nil {
			return err
		}
		for _, f := range files {
			logger.Info("exported", slog.String("file", f))
		}
		return nil
	}

	htmlTarget := strings.HasSuffix(target, ".html")
	files, _, err := svc.BuildBundle(ctx, singleFile || htmlTarget)
	if err != nil {
		return err
	}

	if htmlTarget {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
		if err := os.WriteFile(target, files[0].Data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		logger.Info("exported", slog.String("file", target))
		return nil
	}

	if err := bundle.WriteDir(files, target); err != nil {
		return err
	}
	for _, f := range files {
		logger.Info("exported", slog.String("file", filepath.Join(target, filepath.FromSlash(f.Path))))
	}
	return nil
}
