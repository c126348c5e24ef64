package worker

import (
	"context"

	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/provider"
)

// HandlePush handles a push event delivered while no client is in the
// foreground. Malformed payloads degrade to a generic notification; a push
// event is never dropped and this handler never fails.
func (reg *Registration) HandlePush(raw []byte) domain.PushPayload {
	payload := domain.ParsePushPayload(raw)
	if payload.Title == domain.GenericTitle {
		logging.Warn("push payload degraded to generic notification")
	}
	if reg.opts.Notifier != nil {
		reg.opts.Notifier.Notify(payload.Title, payload.Body, payload.URL)
	}
	return payload
}

// ClickResult reports how a notification click was routed.
type ClickResult struct {
	// FocusedClient is the id of the attached client asked to take focus,
	// empty when a new client was opened instead.
	FocusedClient string
	// Opened reports whether a new client was opened for the URL.
	Opened bool
}

// HandleNotificationClick closes the notification and routes its deep link:
// an attached client already showing the URL is focused instead of opening a
// duplicate; otherwise a new client is opened.
func (reg *Registration) HandleNotificationClick(url string) ClickResult {
	if url == "" {
		return ClickResult{}
	}
	if c, ok := reg.clientByURL(url); ok {
		c.deliver(Message{Type: MsgFocus, URL: url})
		return ClickResult{FocusedClient: c.ID()}
	}
	if reg.opts.Opener != nil {
		reg.opts.Opener(url)
		return ClickResult{Opened: true}
	}
	return ClickResult{}
}

// HandleMessage processes a message sent by an attached client. Configuration
// payloads are acknowledged to the sending client only, not broadcast.
func (reg *Registration) HandleMessage(fromClientID string, msg Message) {
	switch msg.Type {
	case MsgConfig:
		if msg.Config == nil {
			logging.Warn("config message without credentials", "client", fromClientID)
			return
		}
		reg.mu.Lock()
		reg.creds = &credentials{APIKey: msg.Config.APIKey, SenderID: msg.Config.SenderID}
		reg.mu.Unlock()
		if c, ok := reg.clientByID(fromClientID); ok {
			c.deliver(Message{Type: MsgConfigAck})
		}
	default:
		logging.Debug("ignoring unknown client message", "type", msg.Type, "client", fromClientID)
	}
}

// Credentials returns the provider credentials delivered via HandleMessage.
func (reg *Registration) Credentials() (provider.Credentials, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if reg.creds == nil {
		return provider.Credentials{}, false
	}
	return provider.Credentials{APIKey: reg.creds.APIKey, SenderID: reg.creds.SenderID}, true
}

// HandleSync runs the missed-notification reconciliation. Sync runs in the
// background, so failures are logged and swallowed, never surfaced to a user.
func (reg *Registration) HandleSync(ctx context.Context) int {
	if reg.opts.Missed == nil {
		return 0
	}
	missed, err := reg.opts.Missed.CheckMissed(ctx)
	if err != nil {
		logging.Debug("check-missed reconciliation failed", "error", err)
		return 0
	}
	if missed > 0 {
		logging.Info("missed notifications since last session", "count", missed)
	}
	return missed
}
