package main

import (
	"github.com/spf13/cobra"

	"seepage/internal/config"
)

func newMigrateCmd(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cfg)
			db, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}
