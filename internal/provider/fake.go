package provider

import (
	"context"
	"sync"
	"sync/atomic"
)

// Fake is an in-memory Provider for tests. It counts mint calls, can be
// scripted to fail or return empty tokens for the first N attempts, and lets
// tests inject foreground messages and refresh signals.
type Fake struct {
	mu sync.Mutex

	// TokenValue is returned by MintToken once EmptyAttempts is exhausted.
	TokenValue string
	// EmptyAttempts is the number of leading MintToken calls that return an
	// empty token (the transient condition).
	EmptyAttempts int
	// MintErr, when set, is returned by every MintToken call.
	MintErr error
	// DeleteErr, when set, is returned by every DeleteToken call.
	DeleteErr error

	mintCalls   atomic.Int64
	deleted     []string
	messagesCh  chan Message
	refreshCh   chan string
	channelOnce sync.Once
}

// NewFake creates a fake provider that mints token on the first attempt.
func NewFake(token string) *Fake {
	return &Fake{TokenValue: token}
}

func (f *Fake) channels() (chan Message, chan string) {
	f.channelOnce.Do(func() {
		f.messagesCh = make(chan Message, 16)
		f.refreshCh = make(chan string, 1)
	})
	return f.messagesCh, f.refreshCh
}

// MintToken implements Provider.
func (f *Fake) MintToken(ctx context.Context) (string, error) {
	f.mintCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MintErr != nil {
		return "", f.MintErr
	}
	if f.EmptyAttempts > 0 {
		f.EmptyAttempts--
		return "", nil
	}
	return f.TokenValue, nil
}

// DeleteToken implements Provider.
func (f *Fake) DeleteToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

// Messages implements Provider.
func (f *Fake) Messages() <-chan Message {
	ch, _ := f.channels()
	return ch
}

// TokenRefresh implements Provider.
func (f *Fake) TokenRefresh() <-chan string {
	_, ch := f.channels()
	return ch
}

// Emit injects a foreground message into the stream.
func (f *Fake) Emit(msg Message) {
	ch, _ := f.channels()
	ch <- msg
}

// EmitRefresh injects a token rotation signal.
func (f *Fake) EmitRefresh(token string) {
	_, ch := f.channels()
	ch <- token
}

// CloseStream closes the foreground message stream.
func (f *Fake) CloseStream() {
	ch, _ := f.channels()
	close(ch)
}

// MintCalls returns the number of MintToken invocations.
func (f *Fake) MintCalls() int {
	return int(f.mintCalls.Load())
}

// Deleted returns the tokens passed to DeleteToken, in order.
func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}
