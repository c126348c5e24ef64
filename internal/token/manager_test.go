package token

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/failure"
	"github.com/lifelink-community/pushtray/internal/provider"
	"github.com/lifelink-community/pushtray/internal/state"
)

// stubBackend records token calls and can be scripted to fail.
type stubBackend struct {
	mu          sync.Mutex
	registered  []string
	removed     []string
	registerErr error
	removeErr   error
}

func (s *stubBackend) RegisterToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return s.registerErr
	}
	s.registered = append(s.registered, token)
	return nil
}

func (s *stubBackend) RemoveToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, token)
	return nil
}

func (s *stubBackend) FetchFeed(ctx context.Context, page, limit int) (backend.FeedPage, error) {
	return backend.FeedPage{}, nil
}
func (s *stubBackend) MarkRead(ctx context.Context, id string) error     { return nil }
func (s *stubBackend) MarkAllRead(ctx context.Context) error             { return nil }
func (s *stubBackend) DeleteNotification(ctx context.Context, id string) error {
	return nil
}
func (s *stubBackend) CheckMissed(ctx context.Context) (int, error) { return 0, nil }

func (s *stubBackend) registeredTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.registered))
	copy(out, s.registered)
	return out
}

func (s *stubBackend) removedTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.removed))
	copy(out, s.removed)
	return out
}

func openTestStore(t *testing.T) *state.Store {
	t.Helper()
	st, err := state.Open(filepath.Join(t.TempDir(), "pushtray.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestAcquireMintsPersistsAndRegisters(t *testing.T) {
	st := openTestStore(t)
	be := &stubBackend{}
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})
	tok, err := mgr.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)

	stored, ok, err := st.Get(state.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-1", stored)
	require.Equal(t, []string{"tok-1"}, be.registeredTokens())
}

func TestAcquireIsSingleFlight(t *testing.T) {
	st := openTestStore(t)
	be := &stubBackend{}
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})

	const callers = 8
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := mgr.Acquire(context.Background(), "user-1")
			require.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		require.Equal(t, "tok-1", tok)
	}
	// All callers shared at most one flight; a second flight may start after
	// the first completes, but it reuses the persisted token without minting.
	require.LessOrEqual(t, prov.MintCalls(), 2)
	require.GreaterOrEqual(t, prov.MintCalls(), 1)
}

func TestAcquireRetriesEmptyTokenThenSucceeds(t *testing.T) {
	st := openTestStore(t)
	prov := provider.NewFake("tok-1")
	prov.EmptyAttempts = 2

	mgr := NewManager(prov, &stubBackend{}, st, Options{Attempts: 3, Sleep: noSleep})
	tok, err := mgr.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
	require.Equal(t, 3, prov.MintCalls())
}

func TestAcquireExhaustsRetries(t *testing.T) {
	st := openTestStore(t)
	prov := provider.NewFake("")
	prov.EmptyAttempts = 10

	mgr := NewManager(prov, &stubBackend{}, st, Options{Attempts: 3, Sleep: noSleep})
	tok, err := mgr.Acquire(context.Background(), "user-1")
	require.Error(t, err)
	require.Empty(t, tok)
	require.Equal(t, 3, prov.MintCalls())
	require.True(t, failure.IsKind(err, failure.KindTransientProvider))

	// Nothing half-finished was left behind.
	_, ok, err := st.Get(state.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAcquireStopsOnTerminalError(t *testing.T) {
	st := openTestStore(t)
	prov := provider.NewFake("tok-1")
	prov.MintErr = failure.New(failure.KindPermissionDenied, "denied")

	mgr := NewManager(prov, &stubBackend{}, st, Options{Attempts: 3, Sleep: noSleep})
	_, err := mgr.Acquire(context.Background(), "user-1")
	require.Error(t, err)
	require.Equal(t, 1, prov.MintCalls())
}

func TestAcquireKeepsTokenWhenRegistrationFails(t *testing.T) {
	st := openTestStore(t)
	be := &stubBackend{registerErr: errors.New("backend down")}
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})
	tok, err := mgr.Acquire(context.Background(), "user-1")
	require.Error(t, err)
	require.True(t, failure.IsKind(err, failure.KindBackend))
	require.Equal(t, "tok-1", tok)

	// Token stays cached so EnsureRegistered can retry without re-minting.
	stored, ok, _ := st.Get(state.KeyToken)
	require.True(t, ok)
	require.Equal(t, "tok-1", stored)

	be.mu.Lock()
	be.registerErr = nil
	be.mu.Unlock()
	require.NoError(t, mgr.EnsureRegistered(context.Background(), "user-1"))
	require.Equal(t, []string{"tok-1"}, be.registeredTokens())
	require.Equal(t, 1, prov.MintCalls())
}

func TestAcquireReusesPersistedToken(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Set(state.KeyToken, "tok-old"))
	be := &stubBackend{}
	prov := provider.NewFake("tok-new")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})
	tok, err := mgr.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-old", tok)
	require.Equal(t, 0, prov.MintCalls())
	require.Equal(t, []string{"tok-old"}, be.registeredTokens())
}

func TestCurrentReflectsStoredToken(t *testing.T) {
	st := openTestStore(t)
	mgr := NewManager(provider.NewFake("tok-1"), &stubBackend{}, st, Options{Sleep: noSleep})

	reg, err := mgr.Current("user-1")
	require.NoError(t, err)
	require.False(t, reg.Active())

	require.NoError(t, st.Set(state.KeyToken, "tok-1"))
	reg, err = mgr.Current("user-1")
	require.NoError(t, err)
	require.True(t, reg.Active())
	require.Equal(t, "tok-1", reg.Token)
	require.Equal(t, "user-1", reg.UserID)
}

func TestReleaseRemovesEverywhere(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Set(state.KeyToken, "tok-1"))
	be := &stubBackend{}
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})
	require.NoError(t, mgr.Release(context.Background(), "user-1"))

	_, ok, _ := st.Get(state.KeyToken)
	require.False(t, ok)
	require.Equal(t, []string{"tok-1"}, be.removedTokens())
	require.Equal(t, []string{"tok-1"}, prov.Deleted())
}

func TestReleaseWithoutTokenIsNoop(t *testing.T) {
	st := openTestStore(t)
	be := &stubBackend{}
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})
	require.NoError(t, mgr.Release(context.Background(), "user-1"))
	require.NoError(t, mgr.Release(context.Background(), "user-1"))
	require.Empty(t, be.removedTokens())
}

func TestReleaseWinsOverInFlightAcquire(t *testing.T) {
	st := openTestStore(t)
	be := &stubBackend{}
	prov := provider.NewFake("tok-1")

	minting := make(chan struct{})
	proceed := make(chan struct{})
	slow := &slowProvider{Fake: prov, minting: minting, proceed: proceed}

	mgr := NewManager(slow, be, st, Options{Sleep: noSleep})

	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.Acquire(context.Background(), "user-1")
	}()

	<-minting
	// Release lands while the mint is still in flight.
	require.NoError(t, mgr.Release(context.Background(), "user-1"))
	close(proceed)
	<-done

	// The release's effect won: no locally enabled token survives.
	_, ok, err := st.Get(state.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, be.registeredTokens(), be.removedTokens())
}

func TestReleaseDuringRegistrationDeregistersLateToken(t *testing.T) {
	st := openTestStore(t)
	gb := &gatedBackend{
		stubBackend: &stubBackend{},
		registering: make(chan struct{}),
		proceed:     make(chan struct{}),
	}
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, gb, st, Options{Sleep: noSleep})

	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.Acquire(context.Background(), "user-1")
	}()

	<-gb.registering
	// The token is already persisted; the backend registration has not landed.
	require.NoError(t, mgr.Release(context.Background(), "user-1"))
	close(gb.proceed)
	<-done

	// The late registration must not be the backend's final word.
	events := gb.eventLog()
	require.NotEmpty(t, events)
	require.Equal(t, "remove:tok-1", events[len(events)-1])

	_, ok, err := st.Get(state.KeyToken)
	require.NoError(t, err)
	require.False(t, ok)
	require.Contains(t, prov.Deleted(), "tok-1")
}

// gatedBackend blocks the first RegisterToken until released and records the
// order of backend-visible token events.
type gatedBackend struct {
	*stubBackend
	registering chan struct{}
	proceed     chan struct{}
	once        sync.Once

	evMu   sync.Mutex
	events []string
}

func (g *gatedBackend) RegisterToken(ctx context.Context, token string) error {
	g.once.Do(func() { close(g.registering) })
	<-g.proceed
	g.evMu.Lock()
	g.events = append(g.events, "register:"+token)
	g.evMu.Unlock()
	return g.stubBackend.RegisterToken(ctx, token)
}

func (g *gatedBackend) RemoveToken(ctx context.Context, token string) error {
	g.evMu.Lock()
	g.events = append(g.events, "remove:"+token)
	g.evMu.Unlock()
	return g.stubBackend.RemoveToken(ctx, token)
}

func (g *gatedBackend) eventLog() []string {
	g.evMu.Lock()
	defer g.evMu.Unlock()
	out := make([]string, len(g.events))
	copy(out, g.events)
	return out
}

// slowProvider blocks MintToken until released, to order interleavings.
type slowProvider struct {
	*provider.Fake
	minting chan struct{}
	proceed chan struct{}
	once    sync.Once
}

func (s *slowProvider) MintToken(ctx context.Context) (string, error) {
	s.once.Do(func() { close(s.minting) })
	<-s.proceed
	return s.Fake.MintToken(ctx)
}

func TestRotateRegistersNewBeforeRemovingOld(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Set(state.KeyToken, "tok-old"))
	be := &stubBackend{}
	prov := provider.NewFake("tok-old")

	mgr := NewManager(prov, be, st, Options{Sleep: noSleep})
	require.NoError(t, mgr.Rotate(context.Background(), "user-1", "tok-new"))

	stored, ok, _ := st.Get(state.KeyToken)
	require.True(t, ok)
	require.Equal(t, "tok-new", stored)
	require.Equal(t, []string{"tok-new"}, be.registeredTokens())
	require.Equal(t, []string{"tok-old"}, be.removedTokens())
	require.Equal(t, []string{"tok-old"}, prov.Deleted())
}

func TestRotateSameTokenIsNoop(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.Set(state.KeyToken, "tok-1"))
	be := &stubBackend{}

	mgr := NewManager(provider.NewFake("tok-1"), be, st, Options{Sleep: noSleep})
	require.NoError(t, mgr.Rotate(context.Background(), "user-1", "tok-1"))
	require.Empty(t, be.registeredTokens())
	require.Empty(t, be.removedTokens())
}

func TestAcquireWaitsForReady(t *testing.T) {
	st := openTestStore(t)
	ready := make(chan struct{})
	prov := provider.NewFake("tok-1")

	mgr := NewManager(prov, &stubBackend{}, st, Options{Sleep: noSleep, Ready: ready})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := mgr.Acquire(ctx, "user-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, prov.MintCalls())

	close(ready)
	tok, err := mgr.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)
}
