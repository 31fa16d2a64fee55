package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ocean-authoring/ocean-backend/config"
	"github.com/ocean-authoring/ocean-backend/internal/bootstrap"
	"github.com/ocean-authoring/ocean-backend/internal/projects/repository"
)

var migrateDSN string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := migrateDSN
		if dsn == "" {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			dsn = cfg.Database.ConnString()
		}

		pool, err := bootstrap.OpenDB(cmd.Context(), bootstrap.DBOptions{DSN: dsn})
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := repository.Migrate(cmd.Context(), pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		slog.Info("schema applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "Postgres DSN (default from DB_DSN or DB_HOST)")
}
