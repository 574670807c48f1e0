package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"fairway/backend/internal/config"
	"fairway/backend/internal/logging"
	"fairway/backend/internal/store/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, logFile := logging.New(logOptions(cfg))
			defer logFile.Close()

			db, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = postgres.Close(db) }()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				log.Error("migration failed", slog.Any("err", err))
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
