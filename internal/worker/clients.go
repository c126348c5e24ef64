package worker

import (
	"sync"

	"github.com/lifelink-community/pushtray/internal/provider"
)

// Message types exchanged across the worker/client boundary.
const (
	// MsgActivated is broadcast to every attached client on activation.
	MsgActivated = "activated"
	// MsgConfig delivers provider credentials from a client to the worker.
	MsgConfig = "FIREBASE_CONFIG"
	// MsgConfigAck acknowledges credential receipt to the sending client only.
	MsgConfigAck = "FIREBASE_CONFIG_RECEIVED"
	// MsgFocus asks a client already showing a URL to take focus.
	MsgFocus = "focus"
)

// Message is a typed payload crossing the worker/client boundary. There is no
// shared memory between the two sides; this is the whole contract.
type Message struct {
	Type   string                `json:"type"`
	Config *provider.Credentials `json:"config,omitempty"`
	URL    string                `json:"url,omitempty"`
}

// Client is an attached page context. A client only ever reads worker state
// through messages; it never drives the lifecycle.
type Client struct {
	id  string
	url string

	mu     sync.Mutex
	inbox  chan Message
	closed bool
}

// NewClient creates a client with the given id, currently showing url.
func NewClient(id, url string) *Client {
	return &Client{id: id, url: url, inbox: make(chan Message, 8)}
}

// ID returns the client id.
func (c *Client) ID() string { return c.id }

// CurrentURL returns the URL the client is showing.
func (c *Client) CurrentURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// SetCurrentURL updates the URL the client is showing.
func (c *Client) SetCurrentURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
}

// Inbox returns the channel of messages from the worker.
func (c *Client) Inbox() <-chan Message {
	return c.inbox
}

// deliver sends a message without blocking the worker; a client that stopped
// draining its inbox misses messages rather than stalling delivery.
func (c *Client) deliver(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.inbox <- msg:
	default:
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbox)
	}
}

// Attach connects a client to the worker. If the worker is already activated
// the client immediately receives the activation signal.
func (reg *Registration) Attach(c *Client) {
	reg.mu.Lock()
	reg.clients[c.id] = c
	activated := reg.state == StateActivated
	reg.mu.Unlock()
	if activated {
		c.deliver(Message{Type: MsgActivated})
	}
}

// Detach disconnects a client.
func (reg *Registration) Detach(id string) {
	reg.mu.Lock()
	c, ok := reg.clients[id]
	delete(reg.clients, id)
	reg.mu.Unlock()
	if ok {
		c.close()
	}
}

// Broadcast delivers a message to every attached client.
func (reg *Registration) Broadcast(msg Message) {
	reg.mu.RLock()
	clients := make([]*Client, 0, len(reg.clients))
	for _, c := range reg.clients {
		clients = append(clients, c)
	}
	reg.mu.RUnlock()
	for _, c := range clients {
		c.deliver(msg)
	}
}

// clientByID returns the attached client with the given id.
func (reg *Registration) clientByID(id string) (*Client, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.clients[id]
	return c, ok
}

// clientByURL returns an attached client currently showing url.
func (reg *Registration) clientByURL(url string) (*Client, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, c := range reg.clients {
		if c.CurrentURL() == url {
			return c, true
		}
	}
	return nil, false
}
