// Package feed maintains the in-memory notification feed: paged loading from
// the backend, optimistic read/delete mutations, and live prepends from the
// foreground router.
package feed

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/logging"
)

// Store holds the current feed view. Mutations apply locally first and then
// propagate to the backend; a failed propagation keeps the local change. The
// drift heals on the next full reload.
type Store struct {
	backend backend.Client
	limit   int

	mu       sync.RWMutex
	items    []domain.Notification
	unread   int
	page     int
	hasMore  bool
	loadedAt bool
}

// NewStore creates a feed store paging with the given limit.
func NewStore(client backend.Client, limit int) *Store {
	if limit <= 0 {
		limit = 10
	}
	return &Store{backend: client, limit: limit, hasMore: true}
}

// Load fetches the given page. Page 1 replaces the feed; higher pages append.
// Entries already present (same id) are skipped, and a durable entry replaces
// a locally synthesized one carrying the same title and body.
func (s *Store) Load(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	fetched, err := s.backend.FetchFeed(ctx, page, s.limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if page == 1 {
		s.items = nil
	}
	for _, n := range fetched.Notifications {
		s.mergeLocked(n)
	}
	s.unread = fetched.UnreadCount
	s.page = page
	s.hasMore = len(fetched.Notifications) == s.limit
	s.loadedAt = true
	return nil
}

// LoadMore fetches the next page when the last fetch was full.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.RLock()
	more, next := s.hasMore, s.page+1
	s.mu.RUnlock()
	if !more {
		return nil
	}
	return s.Load(ctx, next)
}

// Prepend inserts a freshly received notification at the head of the feed.
// Duplicate ids are ignored.
func (s *Store) Prepend(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(n.ID) >= 0 {
		return
	}
	s.items = append([]domain.Notification{n}, s.items...)
	if !n.IsRead {
		s.unread++
	}
}

// MarkRead marks one notification as read, optimistically. Locally
// synthesized entries are not propagated; the backend never saw them.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	if s.items[i].IsRead {
		s.mu.Unlock()
		return nil
	}
	s.items[i].MarkRead()
	if s.unread > 0 {
		s.unread--
	}
	local := s.items[i].IsLocal()
	s.mu.Unlock()

	if local {
		return nil
	}
	if err := s.backend.MarkRead(ctx, id); err != nil {
		logging.Warn("mark-read propagation failed, keeping local state", "id", id, "error", err)
		return err
	}
	return nil
}

// MarkAllRead marks every notification as read, optimistically.
func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	changed := false
	for i := range s.items {
		if !s.items[i].IsRead {
			s.items[i].MarkRead()
			changed = true
		}
	}
	s.unread = 0
	s.mu.Unlock()

	if !changed {
		return nil
	}
	if err := s.backend.MarkAllRead(ctx); err != nil {
		logging.Warn("mark-all-read propagation failed, keeping local state", "error", err)
		return err
	}
	return nil
}

// Remove deletes a notification from the feed, optimistically.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	if !s.items[i].IsRead && s.unread > 0 {
		s.unread--
	}
	local := s.items[i].IsLocal()
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.mu.Unlock()

	if local {
		return nil
	}
	if err := s.backend.DeleteNotification(ctx, id); err != nil {
		logging.Warn("delete propagation failed, keeping local state", "id", id, "error", err)
		return err
	}
	return nil
}

// Items returns a copy of the current feed, newest first.
func (s *Store) Items() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Unread returns the current unread count.
func (s *Store) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// HasMore reports whether another page is worth fetching.
func (s *Store) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasMore
}

// Loaded reports whether at least one fetch has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// mergeLocked appends a fetched notification, dropping duplicates and
// displacing a synthesized local twin once the durable record arrives.
func (s *Store) mergeLocked(n domain.Notification) {
	if s.indexLocked(n.ID) >= 0 {
		return
	}
	if !strings.HasPrefix(n.ID, domain.LocalIDPrefix) {
		for i := range s.items {
			if s.items[i].IsLocal() && s.items[i].Title == n.Title && s.items[i].Body == n.Body {
				s.items[i] = n
				s.sortLocked()
				return
			}
		}
	}
	s.items = append(s.items, n)
	s.sortLocked()
}

func (s *Store) sortLocked() {
	// RFC3339 UTC strings order lexicographically.
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].CreatedAt > s.items[j].CreatedAt
	})
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
