// Package worker implements the delivery worker lifecycle.
//
// A worker is a background context independent of any attached client: it owns
// the offline asset cache, displays push notifications delivered while no
// client is attached, and answers fetches with a network-first strategy. It
// shares no memory with clients; everything crosses the boundary as typed
// messages.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/lifelink-community/pushtray/internal/logging"
)

// State is a lifecycle state of a worker registration.
type State string

const (
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Notifier displays a native notification on behalf of the worker.
type Notifier interface {
	Notify(title, body, url string)
}

// Opener opens a deep link in a new client when no attached client shows it.
type Opener func(url string)

// MissedChecker reconciles missed notifications on a sync event.
type MissedChecker interface {
	CheckMissed(ctx context.Context) (int, error)
}

// Options configures a worker registration.
type Options struct {
	// CacheVersion tags the offline cache; caches with a different tag are
	// purged on activation.
	CacheVersion string
	// OfflineAssets is the fixed asset set pre-populated on install.
	OfflineAssets []string
	// Fetcher retrieves assets and fetch responses from the network.
	// Defaults to http.DefaultClient via NewHTTPFetcher.
	Fetcher Fetcher
	// Notifier displays push notifications. Required for push handling.
	Notifier Notifier
	// Opener opens deep links. Optional.
	Opener Opener
	// Missed runs the check-missed reconciliation on sync events. Optional.
	Missed MissedChecker
	// Origin is the scheme://host[:port] considered same-origin for fetches.
	Origin string
}

// Registry owns every worker registration in the process. Ownership of a
// registration handle is exclusive to the registry; other components read its
// state or exchange messages with it, but never unregister or re-register it
// except through the registry.
type Registry struct {
	mu            sync.Mutex
	registrations map[string]*Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{registrations: make(map[string]*Registration)}
}

// Register installs and activates a worker for scope. It is idempotent: if a
// registration already exists for the scope it is returned as-is, whatever its
// state, and no second install runs. Concurrent callers for the same scope get
// the same registration.
func (r *Registry) Register(ctx context.Context, scope string, opts Options) (*Registration, error) {
	if scope == "" {
		return nil, fmt.Errorf("worker: scope cannot be empty")
	}

	r.mu.Lock()
	if existing, ok := r.registrations[scope]; ok {
		r.mu.Unlock()
		// The creator may still be installing. Share its outcome rather than
		// handing out a handle that never becomes ready if the install fails.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-existing.done:
		}
		if err := existing.installErr; err != nil {
			return nil, err
		}
		return existing, nil
	}
	reg := newRegistration(scope, opts)
	r.registrations[scope] = reg
	r.mu.Unlock()

	// Only the creator runs the install; racing callers above wait on done.
	if err := reg.install(ctx); err != nil {
		r.mu.Lock()
		delete(r.registrations, scope)
		r.mu.Unlock()
		reg.installErr = err
		close(reg.done)
		return nil, err
	}
	// Skip-waiting semantics: activate immediately instead of waiting for
	// attached clients to detach.
	reg.activate(ctx)
	close(reg.done)
	return reg, nil
}

// Get returns the registration for scope, if any.
func (r *Registry) Get(scope string) (*Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[scope]
	return reg, ok
}

// Unregister retires the registration for scope and detaches its clients.
func (r *Registry) Unregister(scope string) {
	r.mu.Lock()
	reg, ok := r.registrations[scope]
	delete(r.registrations, scope)
	r.mu.Unlock()
	if ok {
		reg.retire()
	}
}

// Registration is one installed worker for a scope.
type Registration struct {
	scope string
	opts  Options
	cache *Cache

	mu      sync.RWMutex
	state   State
	clients map[string]*Client
	creds   *credentials

	ready     chan struct{}
	readyOnce sync.Once

	// done closes once the creator's install settles; installErr is written
	// before the close and read only after it.
	done       chan struct{}
	installErr error
}

type credentials struct {
	APIKey   string
	SenderID string
}

func newRegistration(scope string, opts Options) *Registration {
	if opts.Fetcher == nil {
		opts.Fetcher = NewHTTPFetcher(nil)
	}
	return &Registration{
		scope:   scope,
		opts:    opts,
		cache:   NewCache(opts.CacheVersion),
		state:   StateInstalling,
		clients: make(map[string]*Client),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Scope returns the registration scope.
func (reg *Registration) Scope() string {
	return reg.scope
}

// State returns the current lifecycle state.
func (reg *Registration) State() State {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.state
}

// Ready returns a channel closed once the worker is activated. Token
// acquisition must wait on this signal, not merely on "installed".
func (reg *Registration) Ready() <-chan struct{} {
	return reg.ready
}

func (reg *Registration) setState(s State) {
	reg.mu.Lock()
	reg.state = s
	reg.mu.Unlock()
}

// install pre-populates the offline cache with the fixed asset set.
// An asset that cannot be fetched fails the install, matching the all-or-
// nothing install contract; registration errors go back to the caller and
// must not crash the process.
func (reg *Registration) install(ctx context.Context) error {
	reg.setState(StateInstalling)
	if err := reg.cache.Precache(ctx, reg.opts.Fetcher, reg.opts.OfflineAssets); err != nil {
		reg.setState(StateRedundant)
		return fmt.Errorf("worker: install scope %s: %w", reg.scope, err)
	}
	reg.setState(StateInstalled)
	logging.Debug("worker installed", "scope", reg.scope, "assets", len(reg.opts.OfflineAssets))
	return nil
}

// activate purges stale caches and broadcasts the activation signal to every
// attached client, so a client that attached before the worker existed can
// react.
func (reg *Registration) activate(ctx context.Context) {
	reg.setState(StateActivating)
	reg.cache.PurgeStale()
	reg.setState(StateActivated)
	reg.readyOnce.Do(func() { close(reg.ready) })
	reg.Broadcast(Message{Type: MsgActivated})
	logging.Debug("worker activated", "scope", reg.scope, "cache_version", reg.opts.CacheVersion)
}

// retire marks the worker redundant and detaches all clients.
func (reg *Registration) retire() {
	reg.mu.Lock()
	reg.state = StateRedundant
	clients := make([]*Client, 0, len(reg.clients))
	for _, c := range reg.clients {
		clients = append(clients, c)
	}
	reg.clients = make(map[string]*Client)
	reg.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// Cache exposes the offline cache for inspection.
func (reg *Registration) CacheHandle() *Cache {
	return reg.cache
}
