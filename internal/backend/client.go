// Package backend provides the REST client for the notification endpoints.
// The backend itself (donor/request CRUD and feed persistence) lives in a
// separate service; this package only speaks the token-registration and feed
// contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/failure"
)

// Client defines the backend operations used by the delivery subsystem.
type Client interface {
	// RegisterToken registers or upserts a device registration for the token.
	RegisterToken(ctx context.Context, token string) error
	// RemoveToken deletes the device registration; missing tokens are a no-op.
	RemoveToken(ctx context.Context, token string) error
	// FetchFeed returns one page of the notification feed plus the unread count.
	FetchFeed(ctx context.Context, page, limit int) (FeedPage, error)
	// MarkRead flips a notification to read. Idempotent.
	MarkRead(ctx context.Context, id string) error
	// MarkAllRead flips every notification to read in one call.
	MarkAllRead(ctx context.Context) error
	// DeleteNotification removes a notification. Idempotent.
	DeleteNotification(ctx context.Context, id string) error
	// CheckMissed returns the number of notifications missed since the last session.
	CheckMissed(ctx context.Context) (int, error)
}

// FeedPage is one page of the feed.
type FeedPage struct {
	Notifications []domain.Notification
	UnreadCount   int
}

// HTTPClient is the http implementation of Client.
type HTTPClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewHTTPClient creates a backend client. authToken is sent as a bearer token
// on every request; it is an opaque session credential, never the user id.
func NewHTTPClient(baseURL, authToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetHTTPClient overrides the underlying http client. Intended for tests.
func (c *HTTPClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.client = client
	}
}

type tokenBody struct {
	Token string `json:"token"`
}

type feedResponse struct {
	Notifications []wireNotification `json:"notifications"`
	UnreadCount   int                `json:"unreadCount"`
}

type wireNotification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	URL       string `json:"url,omitempty"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
	UserID    string `json:"userId"`
}

type missedResponse struct {
	MissedNotifications int `json:"missedNotifications"`
}

// RegisterToken implements Client.
func (c *HTTPClient) RegisterToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/notifications/token/register", tokenBody{Token: token}, nil)
}

// RemoveToken implements Client.
func (c *HTTPClient) RemoveToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/notifications/token/remove", tokenBody{Token: token}, nil)
}

// FetchFeed implements Client.
func (c *HTTPClient) FetchFeed(ctx context.Context, page, limit int) (FeedPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var resp feedResponse
	if err := c.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &resp); err != nil {
		return FeedPage{}, err
	}

	notifications := make([]domain.Notification, 0, len(resp.Notifications))
	for _, w := range resp.Notifications {
		notifications = append(notifications, domain.Notification{
			ID:        w.ID,
			Title:     w.Title,
			Body:      w.Body,
			URL:       w.URL,
			IsRead:    w.IsRead,
			CreatedAt: w.CreatedAt,
			UserID:    w.UserID,
		})
	}

	return FeedPage{Notifications: notifications, UnreadCount: resp.UnreadCount}, nil
}

// MarkRead implements Client.
func (c *HTTPClient) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllRead implements Client.
func (c *HTTPClient) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/read-all", nil, nil)
}

// DeleteNotification implements Client.
func (c *HTTPClient) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
}

// CheckMissed implements Client.
func (c *HTTPClient) CheckMissed(ctx context.Context) (int, error) {
	var resp missedResponse
	if err := c.do(ctx, http.MethodGet, "/notifications/check-missed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.MissedNotifications, nil
}

// do performs one request/response cycle. Non-2xx responses become backend
// failures; response bodies are decoded into out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return failure.Wrap(err, failure.KindBackend, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return failure.Wrap(err, failure.KindBackend, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return failure.Wrap(err, failure.KindBackend, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure.New(failure.KindBackend, fmt.Sprintf("%s %s: unexpected status %d", method, path, resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return failure.Wrap(err, failure.KindBackend, "decode response body")
		}
	}
	return nil
}
