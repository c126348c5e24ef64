package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	unreadStyle   = lipgloss.NewStyle().Bold(true)
	readStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const unreadMarker = "●"

// View renders the inbox.
func (m *Model) View() string {
	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m *Model) renderHeader() string {
	title := fmt.Sprintf("Notifications (%d unread)", m.unread)
	if m.loading {
		title += " loading..."
	}
	return headerStyle.Width(m.width).Render(title)
}

func (m *Model) renderRows() string {
	if len(m.items) == 0 {
		return emptyStyle.Render("No notifications")
	}
	var s strings.Builder
	for i, n := range m.items {
		if i > 0 {
			s.WriteString("\n")
		}
		marker := " "
		style := readStyle
		if !n.IsRead {
			marker = unreadMarker
			style = unreadStyle
		}
		row := fmt.Sprintf("%s %s  %s  %s", marker, formatAge(n.CreatedAt), n.Title, n.Body)
		if len(row) > m.width && m.width > 3 {
			row = row[:m.width-3] + "..."
		}
		if i == m.cursor {
			s.WriteString(selectedStyle.Render(row))
		} else {
			s.WriteString(style.Render(row))
		}
	}
	return s.String()
}

func (m *Model) renderFooter() string {
	if m.status != "" {
		if m.statusErr {
			return errorStyle.Width(m.width).Render(m.status)
		}
		return footerStyle.Width(m.width).Render(m.status)
	}
	help := "j/k: move  enter: open  r: read  a: read all  d: delete  m: more  R: reload  q: quit"
	if m.feed.HasMore() {
		help = "[more pages] " + help
	}
	return footerStyle.Width(m.width).Render(help)
}

// formatAge renders an RFC3339 timestamp as a compact relative age.
func formatAge(createdAt string) string {
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return "    -"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "  now"
	case d < time.Hour:
		return fmt.Sprintf("%4dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%4dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%4dd", int(d.Hours()/24))
	}
}
