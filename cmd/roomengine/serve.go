package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashbrook/roomengine/internal/app"
	"github.com/ashbrook/roomengine/internal/config"
	applog "github.com/ashbrook/roomengine/internal/log"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the room engine HTTP and WebSocket surfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log-level")
			configPath, _ := cmd.Flags().GetString("config")

			logger := applog.New(logLevel)

			cfg, resolvedPath, err := config.Load(logger, configPath)
			if err != nil {
				return err
			}
			logger.Info().Str("config_path", resolvedPath).Msg("configuration loaded")

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return a.Run(ctx)
		},
	}
}
