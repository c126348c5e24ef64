// Package tui provides the interactive notification inbox for bubbletea.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lifelink-community/pushtray/internal/domain"
)

// feedLoadedMsg is sent when a feed page finishes loading.
type feedLoadedMsg struct {
	Items  []domain.Notification
	Unread int
}

// feedErrorMsg is sent when a backend call fails.
type feedErrorMsg struct {
	err error
}

// statusClearMsg clears the transient status line.
type statusClearMsg struct{}

// pollTickMsg triggers a periodic feed refresh.
type pollTickMsg time.Time

func statusClearAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusClearMsg{}
	})
}
