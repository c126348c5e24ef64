/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/permission"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show notification status for this device",
	Long: `Show notification status for this device.

Reports the native permission, the in-app preference, whether a device token
is registered, and the unread and missed notification counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStateStore()
		if err != nil {
			return err
		}
		defer st.Close()

		machine := permission.NewMachine(permission.NewConsolePlatform(loadNative(st)), st)
		if err := machine.Load(ctx); err != nil {
			return err
		}

		enabled, err := machine.Enabled()
		if err != nil {
			return err
		}
		active, err := machine.Active()
		if err != nil {
			return err
		}
		client := newBackendClient()
		mgr := newTokenManager(st, newProvider(), client, nil)
		reg, err := mgr.Current(currentUserID())
		if err != nil {
			return err
		}

		cmd.Printf("permission: %s\n", machine.Native())
		cmd.Printf("enabled:    %t\n", enabled)
		cmd.Printf("active:     %t\n", active)
		cmd.Printf("token:      %t\n", reg.Active())

		if page, err := client.FetchFeed(ctx, 1, 1); err == nil {
			cmd.Printf("unread:     %d\n", page.UnreadCount)
		}
		if missed, err := client.CheckMissed(ctx); err == nil && missed > 0 {
			cmd.Printf("missed:     %d\n", missed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
