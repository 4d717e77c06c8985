package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	config "task-tracker.com/task-tracker/internal/configs"
	"task-tracker.com/task-tracker/internal/logger"
	repository "task-tracker.com/task-tracker/internal/repositories"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the tasks table and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger.Setup(cfg.LogLevel, os.Stdout)

		database, err := config.NewDatabaseClient(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := database.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		if err := repository.NewTaskRepository(database).Migrate(cmd.Context()); err != nil {
			return err
		}

		slog.Info("tasks table is up to date", "dsn", cfg.DatabaseDSN)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
