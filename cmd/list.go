/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/colors"
	"github.com/lifelink-community/pushtray/internal/config"
)

var (
	listPage  int
	listLimit int
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	Long: `List notifications from the feed, newest first.

Unread notifications are marked with a bullet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		limit := listLimit
		if limit <= 0 {
			limit = config.GetInt("feed_page_limit", 10)
		}

		page, err := newBackendClient().FetchFeed(ctx, listPage, limit)
		if err != nil {
			return err
		}

		if len(page.Notifications) == 0 {
			cmd.Println("No notifications")
			return nil
		}

		for _, n := range page.Notifications {
			marker := " "
			if !n.IsRead {
				marker = colors.Yellow + "●" + colors.Reset
			}
			line := fmt.Sprintf("%s %s  %s", marker, n.ID, n.Title)
			if n.Body != "" {
				line += "  " + n.Body
			}
			cmd.Println(line)
		}
		cmd.Printf("\n%d unread\n", page.UnreadCount)
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "Feed page to fetch")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Page size (default from config)")
	rootCmd.AddCommand(listCmd)
}
