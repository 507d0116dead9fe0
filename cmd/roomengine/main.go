// Command roomengine runs the real-time room engine: serve starts the
// server, migrate applies the persisted schema standalone, and room offers
// one-shot administrative operations against a running instance's database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "roomengine",
		Short: "Real-time anonymous chat room engine",
	}

	root.PersistentFlags().String("config", "", "path to config.yaml")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newRoomCmd())
	return root
}
