/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/tui"
)

// inboxCmd represents the inbox command
var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Open the interactive notification inbox",
	Long: `Open the interactive notification inbox.

Keys: j/k move, enter open, r mark read, a mark all read, d delete,
m load more, R reload, q quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newFeedStore(newBackendClient())
		model := tui.NewModel(store, openURL)
		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(inboxCmd)
}
