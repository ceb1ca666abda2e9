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
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/larder/internal/api"
	"github.com/starford/larder/internal/catalog"
	"github.com/starford/larder/internal/mcpserver"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/sse"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("seed_path", cfg.Catalog.SeedPath),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(
		sse.WithFeedThrottle(cfg.Events.Throttle),
		sse.WithViewer(func(r *http.Request) int64 { return api.ActorFrom(r.Context()).UserID }),
	)
	defer broker.Close()

	c, err := build(cfg, broker)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.importSeed(ctx, cfg, logger); err != nil {
		logger.Warn("initial seed import failed", slog.String("error", err.Error()))
	}

	devActor := models.Actor{}
	if !cfg.Auth.AuthEnabled() {
		devActor.UserID = cfg.Auth.DevUserID
		if err := c.db.EnsureUser(ctx, models.User{ID: devActor.UserID, Username: "dev"}); err != nil {
			return fmt.Errorf("create dev user: %w", err)
		}
		logger.Warn("authentication disabled", slog.Int64("dev_user_id", devActor.UserID))
	}

	auth := api.ActorMiddleware(api.AuthOptions{
		Enabled:  cfg.Auth.AuthEnabled(),
		Secret:   []byte(cfg.Auth.Secret),
		DevActor: devActor,
	}, c.db)
	apiRouter := api.NewRouter(api.NewHandler(c.services()), auth, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
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
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-import reference data when the seed file changes.
	if cfg.Catalog.Watch {
		g.Go(func() error {
			err := catalog.Watch(gCtx, cfg.Catalog.SeedPath, c.db, logger, func() {
				c.catalog.Invalidate()
				broker.CatalogReloaded()
			})
			if err != nil {
				logger.Error("seed watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio, acting as the configured user.
// Logs go to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	c, err := build(cfg, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.importSeed(ctx, cfg, logger); err != nil {
		logger.Warn("initial seed import failed", slog.String("error", err.Error()))
	}

	userID := app.userID
	if userID == 0 {
		userID = cfg.Auth.DevUserID
	}
	if userID <= 0 {
		return fmt.Errorf("mcp: user id is required")
	}
	if err := c.db.EnsureUser(ctx, models.User{ID: userID, Username: "user" + strconv.FormatInt(userID, 10)}); err != nil {
		return fmt.Errorf("mcp: ensure user: %w", err)
	}

	srv := mcpserver.New(mcpserver.Deps{
		Catalog:   c.catalog,
		Tags:      c.db,
		Projector: c.projector,
		Shopping:  c.shopping,
	}, models.Actor{UserID: userID})

	logger.Info("MCP server starting on stdio", slog.Int64("user_id", userID))
	return srv.ServeStdio()
}

// RunSeed imports the configured seed file once and exits.
func RunSeed(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	if cfg.Catalog.SeedPath == "" {
		return fmt.Errorf("seed: catalog.seed_path is not configured")
	}

	c, err := build(cfg, nil)
	if err != nil {
		return err
	}
	defer c.close()

	if err := c.importSeed(ctx, cfg, logger); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}
