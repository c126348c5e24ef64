/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read ID",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := newBackendClient().MarkRead(cmd.Context(), id); err != nil {
			return err
		}
		cmd.Printf("Notification %s marked as read\n", id)
		return nil
	},
}

// readAllCmd represents the read-all command
var readAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark all notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newBackendClient().MarkAllRead(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("All notifications marked as read")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(readAllCmd)
}
