// Package permission consolidates the notification permission state machine.
//
// Two independent sources feed it: the platform's native permission, which
// only the user can change, and the in-app enabled preference persisted in the
// durable state store. Every surface queries this machine instead of reading
// raw storage flags, so the two can never be re-derived inconsistently.
package permission

import (
	"context"
	"sync"
	"time"

	"github.com/lifelink-community/pushtray/internal/failure"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/state"
)

// Native is the platform-level permission state.
type Native string

const (
	NativeUnknown     Native = "unknown"
	NativeUnsupported Native = "unsupported"
	NativeDefault     Native = "default"
	NativeGranted     Native = "granted"
	NativeDenied      Native = "denied"
)

// IsValid checks if the native state is valid.
func (n Native) IsValid() bool {
	switch n {
	case NativeUnknown, NativeUnsupported, NativeDefault, NativeGranted, NativeDenied:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (n Native) String() string {
	return string(n)
}

// Platform queries and prompts for the native permission. The prompt may stay
// pending indefinitely if the user never responds; implementations must honor
// ctx cancellation.
type Platform interface {
	// Supported reports whether push notifications are available at all.
	Supported() bool
	// Query returns the current native permission without prompting.
	Query(ctx context.Context) (Native, error)
	// Prompt asks the user and returns their decision. Only the user can move
	// the state from default to granted or denied; there is no programmatic path.
	Prompt(ctx context.Context) (Native, error)
}

// Machine tracks the native permission and the application enabled flag.
type Machine struct {
	platform Platform
	store    *state.Store

	mu     sync.RWMutex
	native Native
}

// NewMachine creates a machine over the given platform and durable store.
func NewMachine(platform Platform, store *state.Store) *Machine {
	return &Machine{platform: platform, store: store, native: NativeUnknown}
}

// Load resolves the unknown state by querying the platform once.
func (m *Machine) Load(ctx context.Context) error {
	if !m.platform.Supported() {
		m.setNative(NativeUnsupported)
		return nil
	}
	native, err := m.platform.Query(ctx)
	if err != nil {
		return failure.Wrap(err, failure.KindUnsupported, "query native permission")
	}
	m.setNative(native)
	return nil
}

func (m *Machine) setNative(n Native) {
	m.mu.Lock()
	m.native = n
	m.mu.Unlock()
}

// Native returns the last loaded native permission.
func (m *Machine) Native() Native {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.native
}

// Enabled returns the durable in-app preference.
func (m *Machine) Enabled() (bool, error) {
	return m.store.GetBool(state.KeyEnabled, false)
}

// Active reports whether delivery is effectively on: the in-app preference
// counts only when the native permission is also granted.
func (m *Machine) Active() (bool, error) {
	if m.Native() != NativeGranted {
		return false, nil
	}
	return m.Enabled()
}

// NeedsReprompt reports the mismatch that triggers the re-opt-in dialog:
// native permission granted but the app preference off or absent.
func (m *Machine) NeedsReprompt() (bool, error) {
	if m.Native() != NativeGranted {
		return false, nil
	}
	enabled, err := m.Enabled()
	if err != nil {
		return false, err
	}
	return !enabled, nil
}

// ShouldPrompt reports whether the opt-in dialog may be shown: at most once
// per device, and never once the user has denied. A denied state suppresses
// the dialog permanently regardless of the asked flag.
func (m *Machine) ShouldPrompt() (bool, error) {
	switch m.Native() {
	case NativeDenied, NativeUnsupported, NativeUnknown:
		return false, nil
	case NativeGranted:
		return m.NeedsReprompt()
	}
	asked, err := m.store.GetBool(state.KeyAsked, false)
	if err != nil {
		return false, err
	}
	return !asked, nil
}

// PromptAfter waits for delay (so the prompt never lands before the session
// is interactive), marks the device as asked, and shows the dialog. The asked
// flag is set before prompting so an abandoned dialog still counts as the one
// permitted ask.
func (m *Machine) PromptAfter(ctx context.Context, delay time.Duration) (Native, error) {
	ok, err := m.ShouldPrompt()
	if err != nil {
		return m.Native(), err
	}
	if !ok {
		return m.Native(), nil
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return m.Native(), ctx.Err()
		case <-timer.C:
		}
	}

	if err := m.store.SetBool(state.KeyAsked, true); err != nil {
		return m.Native(), err
	}

	native, err := m.platform.Prompt(ctx)
	if err != nil {
		return m.Native(), err
	}
	m.setNative(native)
	logging.Info("permission prompt answered", "native", native.String())
	return native, nil
}

// Enable turns the in-app preference on. Only valid when the native
// permission is granted; the caller prompts first otherwise.
func (m *Machine) Enable() error {
	switch m.Native() {
	case NativeDenied:
		return failure.New(failure.KindPermissionDenied, "notifications denied by the user")
	case NativeUnsupported:
		return failure.New(failure.KindUnsupported, "push notifications not available")
	case NativeGranted:
		return m.store.SetBool(state.KeyEnabled, true)
	}
	return failure.New(failure.KindPermissionDenied, "native permission not granted yet")
}

// Disable turns the in-app preference off. Always valid.
func (m *Machine) Disable() error {
	return m.store.SetBool(state.KeyEnabled, false)
}
