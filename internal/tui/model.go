package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/feed"
)

const (
	defaultWidth      = 80
	defaultHeight     = 24
	headerFooterLines = 3
	statusDuration    = 5 * time.Second
	refreshInterval   = 30 * time.Second
)

// Opener opens a notification target URL outside the inbox.
type Opener func(url string) error

// Model is the bubbletea model for the notification inbox.
type Model struct {
	feed   *feed.Store
	opener Opener

	viewport viewport.Model
	width    int
	height   int

	items  []domain.Notification
	unread int
	cursor int

	status    string
	statusErr bool
	loading   bool
}

// NewModel creates an inbox model over the given feed store.
func NewModel(store *feed.Store, opener Opener) *Model {
	vp := viewport.New(defaultWidth, defaultHeight-headerFooterLines)
	return &Model{
		feed:     store,
		opener:   opener,
		viewport: vp,
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

// Init starts the first feed load and the refresh ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(1), pollTick())
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerFooterLines
		m.syncViewport()
		return m, nil
	case feedLoadedMsg:
		m.loading = false
		m.items = msg.Items
		m.unread = msg.Unread
		if m.cursor >= len(m.items) {
			m.cursor = max(0, len(m.items)-1)
		}
		m.syncViewport()
		return m, nil
	case feedErrorMsg:
		m.loading = false
		m.status = msg.err.Error()
		m.statusErr = true
		return m, statusClearAfter(statusDuration)
	case statusClearMsg:
		m.status = ""
		m.statusErr = false
		return m, nil
	case pollTickMsg:
		return m, tea.Batch(m.reloadCmd(), pollTick())
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncViewport()
		return m, nil
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		m.syncViewport()
		return m, nil
	case "g":
		m.cursor = 0
		m.syncViewport()
		return m, nil
	case "G":
		m.cursor = max(0, len(m.items)-1)
		m.syncViewport()
		return m, nil
	case "r":
		return m, m.markReadCmd()
	case "a":
		return m, m.markAllReadCmd()
	case "d":
		return m, m.deleteCmd()
	case "enter", "o":
		return m, m.openCmd()
	case "m":
		return m, m.loadMoreCmd()
	case "R":
		m.loading = true
		return m, m.loadCmd(1)
	}
	return m, nil
}

func (m *Model) selected() (domain.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return domain.Notification{}, false
	}
	return m.items[m.cursor], true
}

func (m *Model) loadCmd(page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.feed.Load(ctx, page); err != nil {
			return feedErrorMsg{err: err}
		}
		return feedLoadedMsg{Items: m.feed.Items(), Unread: m.feed.Unread()}
	}
}

// reloadCmd re-fetches the first page but keeps the cursor in place.
func (m *Model) reloadCmd() tea.Cmd {
	return m.loadCmd(1)
}

func (m *Model) loadMoreCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.feed.LoadMore(ctx); err != nil {
			return feedErrorMsg{err: err}
		}
		return feedLoadedMsg{Items: m.feed.Items(), Unread: m.feed.Unread()}
	}
}

func (m *Model) markReadCmd() tea.Cmd {
	n, ok := m.selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Local state already flipped on error; surface it but keep going.
		if err := m.feed.MarkRead(ctx, n.ID); err != nil {
			return feedErrorMsg{err: err}
		}
		return feedLoadedMsg{Items: m.feed.Items(), Unread: m.feed.Unread()}
	}
}

func (m *Model) markAllReadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.feed.MarkAllRead(ctx); err != nil {
			return feedErrorMsg{err: err}
		}
		return feedLoadedMsg{Items: m.feed.Items(), Unread: m.feed.Unread()}
	}
}

func (m *Model) deleteCmd() tea.Cmd {
	n, ok := m.selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.feed.Remove(ctx, n.ID); err != nil {
			return feedErrorMsg{err: err}
		}
		return feedLoadedMsg{Items: m.feed.Items(), Unread: m.feed.Unread()}
	}
}

func (m *Model) openCmd() tea.Cmd {
	n, ok := m.selected()
	if !ok || n.URL == "" || m.opener == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.opener(n.URL); err != nil {
			return feedErrorMsg{err: err}
		}
		return nil
	}
}

func (m *Model) syncViewport() {
	m.viewport.SetContent(m.renderRows())
	// Keep the cursor row visible.
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if m.cursor >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}
