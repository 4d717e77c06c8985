package cmd

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

	"github.com/spf13/cobra"

	"task-tracker.com/task-tracker/internal/cache"
	config "task-tracker.com/task-tracker/internal/configs"
	httpapi "task-tracker.com/task-tracker/internal/http"
	"task-tracker.com/task-tracker/internal/logger"
	repository "task-tracker.com/task-tracker/internal/repositories"
	"task-tracker.com/task-tracker/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task HTTP API backed by the sqlite tasks table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		log := logger.Setup(cfg.LogLevel, os.Stdout)

		database, err := config.NewDatabaseClient(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		taskRepo := repository.NewTaskRepository(database)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := taskRepo.Migrate(ctx); err != nil {
			return err
		}

		taskCache, closeCache, err := newTaskCache(cfg)
		if err != nil {
			return err
		}
		defer closeCache()

		taskService := services.NewTaskService(taskRepo, taskCache)

		e := httpapi.NewServer(httpapi.NewTaskHandler(taskService), httpapi.ServerOptions{
			AllowedOrigins:     cfg.AllowedOrigins,
			RateLimitPerMinute: cfg.RateLimit,
			TrustedProxies:     cfg.TrustedProxies,
			Logger:             log,
		})

		serverErr := make(chan error, 1)
		go func() {
			log.Info("HTTP server listening", "addr", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", "error", err)
		}

		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}

		log.Info("HTTP server shut down gracefully")
		return nil
	},
}

func newTaskCache(cfg config.Config) (cache.TaskCache, func(), error) {
	if !cfg.CacheEnabled() {
		slog.Info("task cache disabled, REDIS_ADDR not set")
		return cache.NopTaskCache{}, func() {}, nil
	}

	redisClient, err := config.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("task cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return cache.NewRedisTaskCache(redisClient, cfg.CacheKeyPrefix, cfg.CacheTTL), redisClient.Close, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
