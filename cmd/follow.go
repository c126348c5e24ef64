/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/colors"
	"github.com/lifelink-community/pushtray/internal/config"
)

// followCmd represents the follow command
var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Print new notifications as they arrive",
	Long: `Print new notifications as they arrive.

USAGE:
    pushtray follow [OPTIONS]

OPTIONS:
    --interval <secs>  Poll interval (default: 5)
    --unread-only      Print only unread notifications
    -h, --help         Show this help`,
	Run: runFollow,
}

var (
	followInterval   float64
	followUnreadOnly bool
)

// FollowOptions holds all parameters for following notifications.
type FollowOptions struct {
	UnreadOnly bool
	Interval   time.Duration
	Output     io.Writer        // where to write notifications (default os.Stdout)
	TickChan   <-chan time.Time // optional tick channel for testing (if nil, a ticker is created)
}

func runFollow(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := FollowOptions{
		UnreadOnly: followUnreadOnly,
		Interval:   time.Duration(followInterval * float64(time.Second)),
		Output:     os.Stdout,
	}
	if err := followNotifications(ctx, newBackendClient(), opts); err != nil && ctx.Err() == nil {
		colors.Error("follow failed: " + err.Error())
	}
}

// followNotifications polls the feed and prints entries it has not seen yet.
func followNotifications(ctx context.Context, client backend.Client, opts FollowOptions) error {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}

	ticks := opts.TickChan
	if ticks == nil {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	limit := config.GetInt("feed_page_limit", 10)
	seen := make(map[string]bool)

	// Baseline fetch: existing notifications are not re-announced.
	if page, err := client.FetchFeed(ctx, 1, limit); err == nil {
		for _, n := range page.Notifications {
			seen[n.ID] = true
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
		}

		page, err := client.FetchFeed(ctx, 1, limit)
		if err != nil {
			// Transient fetch failures are expected while offline.
			continue
		}
		for i := len(page.Notifications) - 1; i >= 0; i-- {
			n := page.Notifications[i]
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			if opts.UnreadOnly && n.IsRead {
				continue
			}
			fmt.Fprintf(opts.Output, "%s\t%s\t%s\n", n.CreatedAt, n.Title, n.Body)
		}
	}
}

func init() {
	followCmd.Flags().Float64Var(&followInterval, "interval", 5, "Poll interval in seconds")
	followCmd.Flags().BoolVar(&followUnreadOnly, "unread-only", false, "Print only unread notifications")
	rootCmd.AddCommand(followCmd)
}
