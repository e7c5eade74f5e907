package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mohammadpnp/crm-import/internal/config"
	"github.com/mohammadpnp/crm-import/internal/logging"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "crm-import",
		Short:        "Server side CRM import tools",
		SilenceUsage: true,
	}
	cmd.AddCommand(newFileCmd(), newTemplateCmd(), newMigrateCmd())
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return cfg, logger, nil
}
