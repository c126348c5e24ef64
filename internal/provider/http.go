package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lifelink-community/pushtray/internal/failure"
	"github.com/lifelink-community/pushtray/internal/logging"
)

// HTTPProvider talks to a push provider over its HTTP surface.
type HTTPProvider struct {
	baseURL  string
	creds    Credentials
	client   *http.Client
	messages chan Message
	refresh  chan string
}

// NewHTTPProvider creates a provider client for the given endpoint.
func NewHTTPProvider(baseURL string, creds Credentials) *HTTPProvider {
	return &HTTPProvider{
		baseURL:  baseURL,
		creds:    creds,
		client:   &http.Client{Timeout: 30 * time.Second},
		messages: make(chan Message, 16),
		refresh:  make(chan string, 1),
	}
}

// Credentials returns the provider credentials this client was built with.
func (p *HTTPProvider) Credentials() Credentials {
	return p.creds
}

// SetHTTPClient overrides the underlying http client. Intended for tests.
func (p *HTTPProvider) SetHTTPClient(client *http.Client) {
	if client != nil {
		p.client = client
	}
}

type mintRequest struct {
	APIKey   string `json:"apiKey"`
	SenderID string `json:"senderId"`
}

type mintResponse struct {
	Token string `json:"token"`
}

// MintToken implements Provider.
func (p *HTTPProvider) MintToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(mintRequest{APIKey: p.creds.APIKey, SenderID: p.creds.SenderID})
	if err != nil {
		return "", failure.Wrap(err, failure.KindTransientProvider, "encode mint request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/tokens", bytes.NewReader(body))
	if err != nil {
		return "", failure.Wrap(err, failure.KindTransientProvider, "build mint request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", failure.Wrap(err, failure.KindTransientProvider, "mint token")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", failure.New(failure.KindTransientProvider, fmt.Sprintf("mint token: unexpected status %d", resp.StatusCode))
	}

	var out mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", failure.Wrap(err, failure.KindTransientProvider, "decode mint response")
	}
	// Empty token is the transient "no token yet" condition; the caller retries.
	return out.Token, nil
}

// DeleteToken implements Provider.
func (p *HTTPProvider) DeleteToken(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/tokens/"+token, nil)
	if err != nil {
		return failure.Wrap(err, failure.KindTransientProvider, "build delete request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return failure.Wrap(err, failure.KindTransientProvider, "delete token")
	}
	defer resp.Body.Close()

	// 404 means the provider already forgot the token.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure.New(failure.KindTransientProvider, fmt.Sprintf("delete token: unexpected status %d", resp.StatusCode))
	}
	return nil
}

// Messages implements Provider.
func (p *HTTPProvider) Messages() <-chan Message {
	return p.messages
}

// TokenRefresh implements Provider.
func (p *HTTPProvider) TokenRefresh() <-chan string {
	return p.refresh
}

type pollResponse struct {
	Messages []Message `json:"messages"`
	NewToken string    `json:"newToken,omitempty"`
}

// Poll runs the foreground message long-poll loop until ctx is cancelled.
// Poll failures are logged and retried on the next interval; they never
// propagate to consumers of the message stream.
func (p *HTTPProvider) Poll(ctx context.Context, token string, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(p.messages)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx, token)
		}
	}
}

func (p *HTTPProvider) pollOnce(ctx context.Context, token string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/messages?token="+token, nil)
	if err != nil {
		logging.Debug("provider poll: build request failed", "error", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logging.Debug("provider poll failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Debug("provider poll: unexpected status", "status", resp.StatusCode)
		return
	}

	var out pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logging.Debug("provider poll: decode failed", "error", err)
		return
	}

	if out.NewToken != "" && out.NewToken != token {
		select {
		case p.refresh <- out.NewToken:
		default:
			// A pending rotation already waits; the newest one wins next poll.
		}
	}

	for _, msg := range out.Messages {
		select {
		case p.messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}
