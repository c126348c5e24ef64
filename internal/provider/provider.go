// Package provider defines the push provider surface: token minting and the
// foreground message stream. Implement Provider to support a different push
// service; the delivery subsystem only depends on this interface.
package provider

import "context"

// Message is a push message delivered while the agent is attached (foreground).
// Background delivery goes through the worker's push handler instead.
type Message struct {
	// ID is the provider's durable message id; empty when the provider
	// did not supply one.
	ID    string
	Title string
	Body  string
	URL   string
}

// Credentials carries the provider configuration pushed to the delivery
// worker. The worker cannot read credentials from its own static setup, so a
// client hands them over via a config message.
type Credentials struct {
	APIKey   string `json:"apiKey"`
	SenderID string `json:"senderId"`
}

// Provider is the push provider client.
type Provider interface {
	// MintToken requests a device token. An empty token with a nil error is a
	// transient condition; callers retry with a bounded count.
	MintToken(ctx context.Context) (string, error)
	// DeleteToken invalidates a previously minted token. Unknown tokens are a no-op.
	DeleteToken(ctx context.Context, token string) error
	// Messages is the foreground message stream. The channel is closed when
	// the provider shuts down.
	Messages() <-chan Message
	// TokenRefresh signals provider-side token rotation; each value is the
	// replacement token.
	TokenRefresh() <-chan string
}
