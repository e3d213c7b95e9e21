// Package main is the entrypoint for the Asocial scheduler server.
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

	"github.com/asocialdev/asocial/internal/activity"
	"github.com/asocialdev/asocial/internal/api"
	"github.com/asocialdev/asocial/internal/api/handler"
	"github.com/asocialdev/asocial/internal/config"
	"github.com/asocialdev/asocial/internal/dispatch"
	"github.com/asocialdev/asocial/internal/platform/registry"
	"github.com/asocialdev/asocial/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "poll_interval", cfg.Scheduler.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create activity feed
	feed, err := activity.NewRedisFeed(cfg.Redis.URL, cfg.Scheduler.ActivityFeedSize)
	if err != nil {
		return fmt.Errorf("create activity feed: %w", err)
	}
	if err := feed.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and platform registry
	pgStore := store.NewPostgresStore(pool)
	reg := registry.New(cfg.Platforms)
	slog.Info("platform adapters registered", "platforms", reg.Names())

	// 6. Start the poll/dispatch loop
	dispatcher := dispatch.NewDispatcher(pgStore, reg, feed,
		cfg.Scheduler.DispatchTimeout, cfg.Scheduler.MaxAttempts)
	poller := dispatch.NewPoller(pgStore, dispatcher, cfg.Scheduler.PollInterval)
	go poller.Run(ctx)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		HealthHandler: handler.NewHealthHandler(pgStore, feed),

		CreatePostHandler:   handler.NewCreatePostHandler(pgStore),
		ListPostsHandler:    handler.NewListPostsHandler(pgStore),
		SchedulePostHandler: handler.NewSchedulePostHandler(pgStore, reg),

		UpsertPlatformHandler: handler.NewUpsertPlatformHandler(pgStore, reg),
		ListPlatformsHandler:  handler.NewListPlatformsHandler(pgStore),

		ListJobsHandler: handler.NewListJobsHandler(pgStore),
		GetJobHandler:   handler.NewGetJobHandler(pgStore),

		ActivityHandler: handler.NewActivityHandler(feed),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
