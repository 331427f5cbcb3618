package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pool-transcoder/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signalContext()
		defer stop()

		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.Info("Running database migrations")
		version, err := postgres.Migrate(store.DB())
		if err != nil {
			return err
		}
		logger.Info("Migrations completed successfully",
			zap.Uint("version", version),
			zap.String("table", postgres.MigrationsTable),
		)
		return nil
	},
}
