/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := newBackendClient().DeleteNotification(cmd.Context(), id); err != nil {
			return err
		}
		cmd.Printf("Notification %s deleted\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
