package feed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/domain"
)

// stubBackend serves scripted feed pages and records mutations.
type stubBackend struct {
	mu        sync.Mutex
	pages     map[int]backend.FeedPage
	fetchErr  error
	mutateErr error
	marked    []string
	markedAll int
	deleted   []string
}

func (s *stubBackend) RegisterToken(ctx context.Context, token string) error { return nil }
func (s *stubBackend) RemoveToken(ctx context.Context, token string) error   { return nil }

func (s *stubBackend) FetchFeed(ctx context.Context, page, limit int) (backend.FeedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return backend.FeedPage{}, s.fetchErr
	}
	return s.pages[page], nil
}

func (s *stubBackend) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutateErr != nil {
		return s.mutateErr
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubBackend) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutateErr != nil {
		return s.mutateErr
	}
	s.markedAll++
	return nil
}

func (s *stubBackend) DeleteNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutateErr != nil {
		return s.mutateErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubBackend) CheckMissed(ctx context.Context) (int, error) { return 0, nil }

func notif(id, title string, read bool, createdAt string) domain.Notification {
	return domain.Notification{ID: id, Title: title, IsRead: read, CreatedAt: createdAt}
}

func TestLoadFirstPageReplaces(t *testing.T) {
	be := &stubBackend{pages: map[int]backend.FeedPage{
		1: {Notifications: []domain.Notification{
			notif("n-2", "second", false, "2026-08-02T10:00:00Z"),
			notif("n-1", "first", true, "2026-08-01T10:00:00Z"),
		}, UnreadCount: 1},
	}}
	store := NewStore(be, 2)

	require.NoError(t, store.Load(context.Background(), 1))
	items := store.Items()
	require.Len(t, items, 2)
	require.Equal(t, "n-2", items[0].ID)
	require.Equal(t, 1, store.Unread())
	require.True(t, store.HasMore())

	// A reload replaces, never duplicates.
	require.NoError(t, store.Load(context.Background(), 1))
	require.Len(t, store.Items(), 2)
}

func TestLoadMoreAppendsAndStopsOnShortPage(t *testing.T) {
	be := &stubBackend{pages: map[int]backend.FeedPage{
		1: {Notifications: []domain.Notification{
			notif("n-3", "c", false, "2026-08-03T10:00:00Z"),
			notif("n-2", "b", false, "2026-08-02T10:00:00Z"),
		}, UnreadCount: 3},
		2: {Notifications: []domain.Notification{
			notif("n-1", "a", false, "2026-08-01T10:00:00Z"),
		}, UnreadCount: 3},
	}}
	store := NewStore(be, 2)

	require.NoError(t, store.Load(context.Background(), 1))
	require.True(t, store.HasMore())

	require.NoError(t, store.LoadMore(context.Background()))
	require.Len(t, store.Items(), 3)
	require.False(t, store.HasMore())

	// Further LoadMore calls are no-ops once the feed is exhausted.
	require.NoError(t, store.LoadMore(context.Background()))
	require.Len(t, store.Items(), 3)
}

func TestLoadDropsDuplicateIDs(t *testing.T) {
	be := &stubBackend{pages: map[int]backend.FeedPage{
		1: {Notifications: []domain.Notification{
			notif("n-2", "b", false, "2026-08-02T10:00:00Z"),
			notif("n-1", "a", false, "2026-08-01T10:00:00Z"),
		}, UnreadCount: 2},
		2: {Notifications: []domain.Notification{
			// Overlap from feed growth between page fetches.
			notif("n-1", "a", false, "2026-08-01T10:00:00Z"),
		}, UnreadCount: 2},
	}}
	store := NewStore(be, 2)

	require.NoError(t, store.Load(context.Background(), 1))
	require.NoError(t, store.Load(context.Background(), 2))
	require.Len(t, store.Items(), 2)
}

func TestDurableEntryReplacesLocalTwin(t *testing.T) {
	be := &stubBackend{pages: map[int]backend.FeedPage{
		1: {Notifications: []domain.Notification{
			notif("n-9", "Blood needed", false, "2026-08-02T10:00:00Z"),
		}, UnreadCount: 1},
	}}
	store := NewStore(be, 10)

	local := notif(domain.LocalIDPrefix+"abc", "Blood needed", false, "2026-08-02T09:59:50Z")
	store.Prepend(local)
	require.Equal(t, 1, store.Unread())

	require.NoError(t, store.Load(context.Background(), 1))
	items := store.Items()
	require.Len(t, items, 1)
	require.Equal(t, "n-9", items[0].ID)
}

func TestPrependIgnoresDuplicates(t *testing.T) {
	store := NewStore(&stubBackend{}, 10)
	n := notif("n-1", "a", false, "2026-08-01T10:00:00Z")
	store.Prepend(n)
	store.Prepend(n)
	require.Len(t, store.Items(), 1)
	require.Equal(t, 1, store.Unread())
}

func TestMarkReadIsOptimisticAndIdempotent(t *testing.T) {
	be := &stubBackend{}
	store := NewStore(be, 10)
	store.Prepend(notif("n-1", "a", false, "2026-08-01T10:00:00Z"))

	require.NoError(t, store.MarkRead(context.Background(), "n-1"))
	require.True(t, store.Items()[0].IsRead)
	require.Equal(t, 0, store.Unread())

	// Second call changes nothing and does not hit the backend again.
	require.NoError(t, store.MarkRead(context.Background(), "n-1"))
	require.Equal(t, []string{"n-1"}, be.marked)

	// Unknown ids are a no-op.
	require.NoError(t, store.MarkRead(context.Background(), "missing"))
}

func TestMarkReadKeepsLocalStateOnBackendFailure(t *testing.T) {
	be := &stubBackend{mutateErr: errors.New("backend down")}
	store := NewStore(be, 10)
	store.Prepend(notif("n-1", "a", false, "2026-08-01T10:00:00Z"))

	err := store.MarkRead(context.Background(), "n-1")
	require.Error(t, err)
	require.True(t, store.Items()[0].IsRead)
	require.Equal(t, 0, store.Unread())
}

func TestMarkReadLocalEntrySkipsBackend(t *testing.T) {
	be := &stubBackend{}
	store := NewStore(be, 10)
	store.Prepend(notif(domain.LocalIDPrefix+"x", "a", false, "2026-08-01T10:00:00Z"))

	require.NoError(t, store.MarkRead(context.Background(), domain.LocalIDPrefix+"x"))
	require.Empty(t, be.marked)
	require.True(t, store.Items()[0].IsRead)
}

func TestMarkAllRead(t *testing.T) {
	be := &stubBackend{}
	store := NewStore(be, 10)
	store.Prepend(notif("n-1", "a", false, "2026-08-01T10:00:00Z"))
	store.Prepend(notif("n-2", "b", false, "2026-08-02T10:00:00Z"))
	store.Prepend(notif("n-3", "c", true, "2026-08-03T10:00:00Z"))

	require.NoError(t, store.MarkAllRead(context.Background()))
	for _, n := range store.Items() {
		require.True(t, n.IsRead)
	}
	require.Equal(t, 0, store.Unread())
	require.Equal(t, 1, be.markedAll)

	// Nothing unread left, so the backend is not called again.
	require.NoError(t, store.MarkAllRead(context.Background()))
	require.Equal(t, 1, be.markedAll)
}

func TestRemove(t *testing.T) {
	be := &stubBackend{}
	store := NewStore(be, 10)
	store.Prepend(notif("n-1", "a", false, "2026-08-01T10:00:00Z"))

	require.NoError(t, store.Remove(context.Background(), "n-1"))
	require.Empty(t, store.Items())
	require.Equal(t, 0, store.Unread())
	require.Equal(t, []string{"n-1"}, be.deleted)

	// Removing again is a no-op.
	require.NoError(t, store.Remove(context.Background(), "n-1"))
	require.Equal(t, []string{"n-1"}, be.deleted)
}

func TestRemoveKeepsLocalStateOnBackendFailure(t *testing.T) {
	be := &stubBackend{mutateErr: errors.New("backend down")}
	store := NewStore(be, 10)
	store.Prepend(notif("n-1", "a", false, "2026-08-01T10:00:00Z"))

	err := store.Remove(context.Background(), "n-1")
	require.Error(t, err)
	require.Empty(t, store.Items())
}
