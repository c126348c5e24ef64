// Package token manages the device push token lifecycle: minting from the
// provider, durable local persistence, and registration with the backend.
package token

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/domain"
	"github.com/lifelink-community/pushtray/internal/failure"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/provider"
	"github.com/lifelink-community/pushtray/internal/state"
)

// Options configures a Manager.
type Options struct {
	// Attempts bounds the mint retries. Zero means the default of 3.
	Attempts int
	// RetryDelay is the fixed inter-attempt delay. Zero means 1s.
	// Fixed rather than exponential on purpose; acquisition is bounded, not polled.
	RetryDelay time.Duration
	// Ready, when non-nil, gates acquisition on the delivery worker's
	// activation signal. A token minted against a non-activated worker is
	// meaningless, so Acquire waits for activation, not mere installation.
	Ready <-chan struct{}
	// Sleep overrides the inter-attempt wait. Tests inject a fake.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Manager owns the device token. Acquisition is single-flight within the
// process: concurrent callers share one provider request and one outcome.
// Cross-process races are left to the backend's upsert semantics.
type Manager struct {
	provider provider.Provider
	backend  backend.Client
	store    *state.Store
	opts     Options

	group singleflight.Group

	mu        sync.Mutex
	intentGen uint64
	disabled  bool // latest intent is release
}

// NewManager creates a token manager.
func NewManager(p provider.Provider, b backend.Client, s *state.Store, opts Options) *Manager {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Manager{provider: p, backend: b, store: s, opts: opts}
}

// Current returns the device registration view of the locally persisted
// token. Another tab may have released the token since it was stored; callers
// re-validate before relying on it.
func (m *Manager) Current(userID string) (domain.DeviceRegistration, error) {
	tok, _, err := m.store.Get(state.KeyToken)
	if err != nil {
		return domain.DeviceRegistration{}, err
	}
	return domain.DeviceRegistration{Token: tok, UserID: userID}, nil
}

// Acquire obtains a token and registers it with the backend. Concurrent calls
// share one in-flight acquisition. The token is persisted locally before the
// backend call, so a crash between the two leaves a recoverable "have token,
// not yet registered" state rather than the unrecoverable inverse.
//
// When minting succeeds but registration fails, the token is returned together
// with a backend-kind error: the local cache stays valid and a later
// EnsureRegistered can retry registration without re-minting.
func (m *Manager) Acquire(ctx context.Context, userID string) (string, error) {
	gen := m.markIntent(false)

	v, err, _ := m.group.Do("acquire", func() (any, error) {
		return m.acquire(ctx, userID)
	})

	tok, _ := v.(string)
	if tok != "" && m.supersededBy(gen) {
		// A release arrived while this acquire was in flight; its effect wins.
		// The release may already have emptied the store, so roll back the
		// token in hand rather than whatever the store holds.
		logging.Debug("acquire superseded by release, rolling back")
		if relErr := m.rollback(ctx, tok, userID); relErr != nil {
			logging.Warn("rollback after superseded acquire failed", "error", relErr)
		}
	}
	return tok, err
}

// rollback undoes an acquisition of tok: local cache, backend registration,
// and the provider-side token. Deregistration runs even when the store no
// longer holds tok, since the backend call may have landed after a release.
func (m *Manager) rollback(ctx context.Context, tok, userID string) error {
	if err := m.store.Delete(state.KeyToken); err != nil {
		return err
	}
	if err := m.backend.RemoveToken(ctx, tok); err != nil {
		return failure.Wrap(err, failure.KindBackend, "rollback: remove token")
	}
	if err := m.provider.DeleteToken(ctx, tok); err != nil {
		logging.Debug("rollback: provider token delete failed", "error", err)
	}
	logging.Info("superseded token deregistered", "user", userID)
	return nil
}

func (m *Manager) acquire(ctx context.Context, userID string) (string, error) {
	if err := m.waitReady(ctx); err != nil {
		return "", err
	}

	// A previously persisted token short-circuits minting entirely.
	if tok, ok, err := m.store.Get(state.KeyToken); err != nil {
		return "", err
	} else if ok && tok != "" {
		if err := m.register(ctx, tok, userID); err != nil {
			return tok, err
		}
		return tok, nil
	}

	tok, err := m.mint(ctx)
	if err != nil {
		return "", err
	}

	// Local persistence first; registration can always be retried later.
	if err := m.store.Set(state.KeyToken, tok); err != nil {
		return "", err
	}
	if err := m.register(ctx, tok, userID); err != nil {
		return tok, err
	}
	return tok, nil
}

// mint requests a token with a bounded fixed-delay retry loop. An empty token
// is the transient condition; exhaustion is a soft failure, not a crash.
func (m *Manager) mint(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		tok, err := m.provider.MintToken(ctx)
		if err == nil && tok != "" {
			return tok, nil
		}
		if err != nil {
			if failure.IsTerminal(err) {
				return "", err
			}
			lastErr = err
			logging.Debug("token mint attempt failed", "attempt", attempt, "error", err)
		} else {
			logging.Debug("provider returned no token", "attempt", attempt)
		}
		if attempt < m.opts.Attempts {
			if err := m.opts.Sleep(ctx, m.opts.RetryDelay); err != nil {
				return "", err
			}
		}
	}
	if lastErr != nil {
		return "", failure.Wrap(lastErr, failure.KindTransientProvider, "token acquisition exhausted retries")
	}
	return "", failure.New(failure.KindTransientProvider, "token acquisition exhausted retries")
}

func (m *Manager) register(ctx context.Context, tok, userID string) error {
	if err := m.backend.RegisterToken(ctx, tok); err != nil {
		logging.Warn("backend token registration failed", "user", userID, "error", err)
		return failure.Wrap(err, failure.KindBackend, "register token")
	}
	logging.Info("device token registered", "user", userID)
	return nil
}

// EnsureRegistered retries backend registration for an already-cached token
// without re-minting. A no-op when no token is cached.
func (m *Manager) EnsureRegistered(ctx context.Context, userID string) error {
	tok, ok, err := m.store.Get(state.KeyToken)
	if err != nil {
		return err
	}
	if !ok || tok == "" {
		return nil
	}
	return m.register(ctx, tok, userID)
}

// Release removes the local token and, if one existed, deregisters it from
// the backend and invalidates it at the provider. An already-absent token is
// success.
func (m *Manager) Release(ctx context.Context, userID string) error {
	m.markIntent(true)

	tok, ok, err := m.store.Get(state.KeyToken)
	if err != nil {
		return err
	}
	if !ok || tok == "" {
		return nil
	}

	if err := m.store.Delete(state.KeyToken); err != nil {
		return err
	}
	if err := m.backend.RemoveToken(ctx, tok); err != nil {
		logging.Warn("backend token removal failed", "user", userID, "error", err)
		return failure.Wrap(err, failure.KindBackend, "remove token")
	}
	if err := m.provider.DeleteToken(ctx, tok); err != nil {
		logging.Debug("provider token delete failed", "error", err)
	}
	logging.Info("device token released", "user", userID)
	return nil
}

// Rotate replaces the current token with newToken after a provider refresh
// signal. The new token is registered before the old one is deregistered, so
// there is never a window with zero registered tokens.
func (m *Manager) Rotate(ctx context.Context, userID, newToken string) error {
	if newToken == "" {
		return failure.New(failure.KindTransientProvider, "rotate: empty replacement token")
	}

	old, _, err := m.store.Get(state.KeyToken)
	if err != nil {
		return err
	}
	if old == newToken {
		return nil
	}

	if err := m.backend.RegisterToken(ctx, newToken); err != nil {
		return failure.Wrap(err, failure.KindBackend, "rotate: register new token")
	}
	if err := m.store.Set(state.KeyToken, newToken); err != nil {
		return err
	}
	if old != "" {
		if err := m.backend.RemoveToken(ctx, old); err != nil {
			logging.Warn("rotate: old token removal failed", "error", err)
		}
		if err := m.provider.DeleteToken(ctx, old); err != nil {
			logging.Debug("rotate: provider delete of old token failed", "error", err)
		}
	}
	logging.Info("device token rotated", "user", userID)
	return nil
}

// markIntent records the latest acquire/release intent and returns the
// generation of this call. Later intents supersede earlier in-flight ones:
// last writer wins.
func (m *Manager) markIntent(release bool) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentGen++
	m.disabled = release
	return m.intentGen
}

// supersededBy reports whether a release intent was recorded after gen.
func (m *Manager) supersededBy(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disabled && m.intentGen > gen
}

func (m *Manager) waitReady(ctx context.Context) error {
	if m.opts.Ready == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.opts.Ready:
		return nil
	}
}
