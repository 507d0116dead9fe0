package main

import (
	"github.com/spf13/cobra"

	"github.com/ashbrook/roomengine/internal/config"
	applog "github.com/ashbrook/roomengine/internal/log"
	"github.com/ashbrook/roomengine/internal/store/sqlite"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the persisted schema to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log-level")
			configPath, _ := cmd.Flags().GetString("config")

			logger := applog.New(logLevel)
			cfg, _, err := config.Load(logger, configPath)
			if err != nil {
				return err
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info().Str("database_path", cfg.DatabasePath).Msg("schema applied")
			return nil
		},
	}
}
