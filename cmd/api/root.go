package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"seepage/internal/config"
	"seepage/internal/database"
	"seepage/internal/database/migration"
	"seepage/internal/logger"
)

func newRootCmd(cfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "seepage",
		Short:         "Seepage serves editor accounts and content with stored media files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = "0.1.0"

	cmd.AddCommand(
		newServeCmd(cfg),
		newMigrateCmd(cfg),
		newSweepCmd(cfg),
	)

	return cmd
}

func newLogger(cfg *config.AppConfig) zerolog.Logger {
	return logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format, cfg.Log.Location())
}

// openDatabase connects and brings the schema up to date.
func openDatabase(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
