package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/feed"
)

type stubBackend struct {
	mu    sync.Mutex
	page  backend.FeedPage
	marks []string
}

func (s *stubBackend) RegisterToken(ctx context.Context, token string) error { return nil }
func (s *stubBackend) RemoveToken(ctx context.Context, token string) error   { return nil }
func (s *stubBackend) FetchFeed(ctx context.Context, page, limit int) (backend.FeedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, nil
}
func (s *stubBackend) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append(s.marks, id)
	return nil
}
func (s *stubBackend) MarkAllRead(ctx context.Context) error                   { return nil }
func (s *stubBackend) DeleteNotification(ctx context.Context, id string) error { return nil }
func (s *stubBackend) CheckMissed(ctx context.Context) (int, error)            { return 0, nil }

func testModel(t *testing.T) (*Model, *stubBackend) {
	t.Helper()
	be := &stubBackend{page: backend.FeedPage{
		Notifications: []domain.Notification{
			{ID: "n-2", Title: "Request matched", CreatedAt: "2026-08-02T10:00:00Z"},
			{ID: "n-1", Title: "Blood needed", IsRead: true, CreatedAt: "2026-08-01T10:00:00Z"},
		},
		UnreadCount: 1,
	}}
	store := feed.NewStore(be, 10)
	m := NewModel(store, nil)
	return m, be
}

func loadModel(t *testing.T, m *Model) {
	t.Helper()
	cmd := m.loadCmd(1)
	msg := cmd()
	loaded, ok := msg.(feedLoadedMsg)
	require.True(t, ok, "expected feedLoadedMsg, got %T", msg)
	m.Update(loaded)
}

func TestModelLoadsFeed(t *testing.T) {
	m, _ := testModel(t)
	loadModel(t, m)

	require.Len(t, m.items, 2)
	require.Equal(t, 1, m.unread)
	view := m.View()
	require.Contains(t, view, "Request matched")
	require.Contains(t, view, "1 unread")
}

func TestModelCursorMovement(t *testing.T) {
	m, _ := testModel(t)
	loadModel(t, m)

	require.Equal(t, 0, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	require.Equal(t, 1, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	require.Equal(t, 1, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	require.Equal(t, 0, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	require.Equal(t, 1, m.cursor)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	require.Equal(t, 0, m.cursor)
}

func TestModelMarkRead(t *testing.T) {
	m, be := testModel(t)
	loadModel(t, m)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	msg := cmd()
	m.Update(msg)

	require.Equal(t, []string{"n-2"}, be.marks)
	require.Equal(t, 0, m.unread)
}

func TestModelQuitKeys(t *testing.T) {
	m, _ := testModel(t)
	for _, key := range []rune{'q'} {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
		require.NotNil(t, cmd)
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
}

func TestModelErrorShowsInFooter(t *testing.T) {
	m, _ := testModel(t)
	m.Update(feedErrorMsg{err: context.DeadlineExceeded})
	require.Contains(t, m.View(), "deadline")

	m.Update(statusClearMsg{})
	require.False(t, strings.Contains(m.View(), "deadline"))
}

func TestModelWindowResize(t *testing.T) {
	m, _ := testModel(t)
	loadModel(t, m)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Equal(t, 120, m.width)
	require.Equal(t, 40-headerFooterLines, m.viewport.Height)
}

func TestFormatAge(t *testing.T) {
	require.Equal(t, "    -", formatAge("not a time"))
	require.Equal(t, "  now", formatAge(time.Now().UTC().Format(time.RFC3339)))
	require.Equal(t, "   2h", formatAge(time.Now().Add(-2*time.Hour).UTC().Format(time.RFC3339)))
}
