/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/colors"
	"github.com/lifelink-community/pushtray/internal/permission"
)

// disableCmd represents the disable command
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable push notifications on this device",
	Long: `Disable push notifications on this device.

Turns the in-app preference off and releases the device token: it is removed
locally, deregistered from the backend, and invalidated at the provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStateStore()
		if err != nil {
			return err
		}
		defer st.Close()

		machine := permission.NewMachine(permission.NewConsolePlatform(loadNative(st)), st)
		if err := machine.Disable(); err != nil {
			return err
		}

		mgr := newTokenManager(st, newProvider(), newBackendClient(), nil)
		if err := mgr.Release(ctx, currentUserID()); err != nil {
			// Local token is already gone; the backend row goes stale and is
			// cleaned up server-side on the next failed delivery.
			colors.Warning("token released locally; backend deregistration failed: " + err.Error())
		}

		cmd.Println("Notifications disabled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disableCmd)
}
