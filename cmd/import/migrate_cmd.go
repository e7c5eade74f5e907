package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammadpnp/crm-import/internal/infrastructure/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return db.Migrate(cmd.Context(), cfg.DatabaseURL, logger)
		},
	}
}
