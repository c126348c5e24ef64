// Package domain provides the domain layer for push notifications.
// It contains the feed record, device registration and push payload types.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Notification represents a single notification feed record.
type Notification struct {
	ID        string
	Title     string
	Body      string
	URL       string
	IsRead    bool
	CreatedAt string
	UserID    string
}

// LocalIDPrefix marks ids synthesized on this device for live foreground
// messages that carried no durable id. Such ids never collide with backend ids.
const LocalIDPrefix = "local-"

// IsLocal reports whether the notification id was synthesized on this device.
func (n *Notification) IsLocal() bool {
	return strings.HasPrefix(n.ID, LocalIDPrefix)
}

// MarkRead sets the read flag.
func (n *Notification) MarkRead() *Notification {
	n.IsRead = true
	return n
}

// Validate validates the notification and returns an error if invalid.
func (n *Notification) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("notification id cannot be empty")
	}
	if n.Title == "" {
		return fmt.Errorf("notification title cannot be empty")
	}
	if n.CreatedAt != "" {
		if _, err := time.Parse(time.RFC3339, n.CreatedAt); err != nil {
			return fmt.Errorf("invalid createdAt format: %w", err)
		}
	}
	return nil
}

// NewNotification creates a new notification with validation.
func NewNotification(id, title, body, url, createdAt, userID string) (*Notification, error) {
	notif := &Notification{
		ID:        id,
		Title:     title,
		Body:      body,
		URL:       url,
		CreatedAt: createdAt,
		UserID:    userID,
	}
	if err := notif.Validate(); err != nil {
		return nil, err
	}
	return notif, nil
}

// PushPayload is the wire shape of a push message body.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	ID    string `json:"id,omitempty"`
}

// GenericTitle is used when a push payload carries no usable title.
const GenericTitle = "New notification"

// ParsePushPayload parses a push message body. It tolerates both JSON and
// plain-text bodies: on JSON parse failure the raw body becomes the
// notification body under a generic title. It never returns an error;
// a malformed payload degrades, it is not dropped.
func ParsePushPayload(raw []byte) PushPayload {
	trimmed := strings.TrimSpace(string(raw))
	var p PushPayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil || p.Title == "" {
		body := trimmed
		if p.Title == "" && err == nil {
			// Valid JSON but no title; keep whatever body it had.
			if p.Body != "" {
				body = p.Body
			}
		}
		return PushPayload{Title: GenericTitle, Body: body, URL: p.URL, ID: p.ID}
	}
	return p
}
