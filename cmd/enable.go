/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/colors"
	"github.com/lifelink-community/pushtray/internal/permission"
)

// enableCmd represents the enable command
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable push notifications on this device",
	Long: `Enable push notifications on this device.

Prompts for permission if the user has not decided yet, turns the in-app
preference on, and registers a device token with the backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStateStore()
		if err != nil {
			return err
		}
		defer st.Close()

		platform := permission.NewConsolePlatform(loadNative(st))
		machine := permission.NewMachine(platform, st)
		if err := machine.Load(ctx); err != nil {
			return err
		}

		// Explicit user action, so no settling delay before the prompt.
		if _, err := machine.PromptAfter(ctx, 0); err != nil {
			return err
		}
		saveNative(st, machine.Native())

		if err := machine.Enable(); err != nil {
			return err
		}

		mgr := newTokenManager(st, newProvider(), newBackendClient(), nil)
		tok, err := mgr.Acquire(ctx, currentUserID())
		if err != nil && tok == "" {
			return fmt.Errorf("enable: %w", err)
		}
		if err != nil {
			colors.Warning("token saved; backend registration will be retried: " + err.Error())
		}

		cmd.Println("Notifications enabled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
}
