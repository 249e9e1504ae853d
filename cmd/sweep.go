package cmd

import (
	"context"
	"fmt"

	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/usecase"
	"nurse-booking/internal/wire"
	"nurse-booking/pkg/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the maintenance jobs once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := database.InitDB(config.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			repo := repository.NewRepository(db, logger)
			notifier, closeNotifier := buildNotifier(config, repo, logger)
			defer closeNotifier()

			app := wire.Wiring(repo, db, usecase.Deps{Notifier: notifier}, prometheus.NewRegistry(), config, logger)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := app.Sweeper.RunOnce(ctx); err != nil {
				return err
			}
			logger.Info("Sweep finished")
			return nil
		},
	}
}
