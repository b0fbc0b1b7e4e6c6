package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"seepage/internal/config"
	"seepage/internal/repository/postgres"
	"seepage/internal/service"
	"seepage/internal/storage"
)

func newSweepCmd(cfg *config.AppConfig) *cobra.Command {
	var grace string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored blobs that no content record references",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger(cfg)

			graceDur := cfg.Sweep.Grace
			if grace != "" {
				d, err := config.ParseDuration(grace)
				if err != nil {
					return fmt.Errorf("invalid --grace: %w", err)
				}
				graceDur = d
			}

			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			blobs, err := storage.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open blob store: %w", err)
			}

			sweeper := service.NewOrphanSweeper(postgres.NewContentPostgres(db), blobs, graceDur, log, nil)
			res, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&grace, "grace", "", "minimum blob age before deletion (default SWEEP_GRACE)")
	return cmd
}
