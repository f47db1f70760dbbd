package main

import (
	"github.com/pixelpanic/pixel-panic-api/config"
	"github.com/pixelpanic/pixel-panic-api/logging"
	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.GoEnv)

			db, err := config.OpenDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer config.CloseDatabase(db)

			if err := models.Migrate(db); err != nil {
				return err
			}
			logger.Info().Int("tables", len(models.All())).Msg("database migration completed successfully")
			return nil
		},
	}
}
