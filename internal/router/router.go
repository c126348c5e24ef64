// Package router consumes foreground provider messages and turns them into
// feed entries and toasts. Foreground delivery bypasses the worker's native
// display path on purpose: the user is already looking at the app.
package router

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/feed"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/provider"
	"github.com/lifelink-community/pushtray/internal/toast"
)

// Rotator receives token refresh signals from the provider stream.
type Rotator interface {
	Rotate(ctx context.Context, userID, newToken string) error
}

// Router bridges the provider's foreground stream into the feed store.
type Router struct {
	provider provider.Provider
	feed     *feed.Store
	notifier toast.Notifier
	rotator  Rotator
	userID   string
	newID    func() string
}

// New creates a router.
func New(p provider.Provider, f *feed.Store, n toast.Notifier, r Rotator, userID string) *Router {
	return &Router{
		provider: p,
		feed:     f,
		notifier: n,
		rotator:  r,
		userID:   userID,
		newID:    uuid.NewString,
	}
}

// Run consumes the provider streams until ctx is cancelled or the message
// channel closes.
func (r *Router) Run(ctx context.Context) error {
	messages := r.provider.Messages()
	refreshes := r.provider.TokenRefresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.Handle(msg)
		case tok, ok := <-refreshes:
			if !ok {
				refreshes = nil
				continue
			}
			if r.rotator == nil {
				continue
			}
			if err := r.rotator.Rotate(ctx, r.userID, tok); err != nil {
				logging.Warn("token rotation after refresh failed", "error", err)
			}
		}
	}
}

// Handle processes one foreground message: synthesize an id when the payload
// carries none, prepend to the feed, and toast. The synthesized entry is a
// placeholder the next feed reload replaces with the durable record.
func (r *Router) Handle(msg provider.Message) domain.Notification {
	n := domain.Notification{
		ID:        msg.ID,
		Title:     msg.Title,
		Body:      msg.Body,
		URL:       msg.URL,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if n.Title == "" {
		n.Title = domain.GenericTitle
	}
	if n.ID == "" {
		n.ID = domain.LocalIDPrefix + r.newID()
	}
	r.feed.Prepend(n)
	if r.notifier != nil {
		r.notifier.Notify(n.Title, n.Body, n.URL)
	}
	logging.Debug("foreground message routed", "id", n.ID, "local", n.IsLocal())
	return n
}
