package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashbrook/roomengine/internal/config"
	applog "github.com/ashbrook/roomengine/internal/log"
	"github.com/ashbrook/roomengine/internal/store/sqlite"
)

// newRoomCmd offers one-shot administrative operations against a room's
// persisted state, independent of a running server process — useful for
// scripted maintenance the way the management HTTP surface is used
// interactively.
func newRoomCmd() *cobra.Command {
	room := &cobra.Command{
		Use:   "room",
		Short: "Inspect or administer a persisted room",
	}
	room.AddCommand(newRoomListCmd(), newRoomUnbanCmd())
	return room
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted rooms",
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

			rooms, err := st.ListRooms(context.Background())
			if err != nil {
				return err
			}
			for _, r := range rooms {
				fmt.Printf("%s\t%s\t%s\n", r.ID, r.Name, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}

func newRoomUnbanCmd() *cobra.Command {
	var roomID, userID string
	cmd := &cobra.Command{
		Use:   "unban",
		Short: "Remove a persisted ban row for a room",
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

			return st.DeleteBan(context.Background(), roomID, userID)
		},
	}
	cmd.Flags().StringVar(&roomID, "room", "", "room id")
	cmd.Flags().StringVar(&userID, "user", "", "user id to unban")
	_ = cmd.MarkFlagRequired("room")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
