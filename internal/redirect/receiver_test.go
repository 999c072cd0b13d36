package redirect

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codepair/internal/event"
	"codepair/internal/model"
	"codepair/internal/session"
)

type fakeNavigator struct {
	mu       sync.Mutex
	replaced []string
	states   []string
}

func (n *fakeNavigator) Replace(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaced = append(n.replaced, path)
}

func (n *fakeNavigator) ReplaceState(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, path)
}

func (n *fakeNavigator) lastReplace() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.replaced) == 0 {
		return ""
	}
	return n.replaced[len(n.replaced)-1]
}

type fakeFetcher struct {
	user      model.User
	acceptTok string
	calls     int
	seenToken string
	// snapshot of storage at fetch time, to verify persist-before-fetch
	storedAtFetch string
	store         session.Store
}

func (f *fakeFetcher) ProfileWithToken(_ context.Context, accessToken string) (model.User, error) {
	f.calls++
	f.seenToken = accessToken
	if f.store != nil {
		f.storedAtFetch, _ = f.store.Get(session.KeyAccessToken)
	}
	if accessToken != f.acceptTok {
		return model.User{}, model.ErrInvalidOrExpiredToken
	}
	return f.user, nil
}

func newReceiverFixture(t *testing.T, fetcher *fakeFetcher) (*Receiver, *session.Manager, session.Store, *fakeNavigator, event.Bus) {
	t.Helper()

	store := session.NewMemoryStore()
	bus := event.NewBus()
	manager := session.NewManager(store, bus)
	t.Cleanup(manager.Close)

	if fetcher.store == nil {
		fetcher.store = store
	}

	nav := &fakeNavigator{}
	return NewReceiver(manager, store, fetcher, nav, bus), manager, store, nav, bus
}

func callbackURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestReceiverHappyPath(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		acceptTok: "token-a",
		user:      model.User{Email: "dev@example.com", Name: "Dev One", AvatarURL: "https://cdn.example.com/a.png"},
	}
	receiver, manager, store, nav, bus := newReceiverFixture(t, fetcher)

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	u := callbackURL(t, "http://localhost:5173/auth/redirect?accessToken=token-a&refreshToken=token-r")
	receiver.Consume(context.Background(), u)

	sess := manager.Session()
	require.True(t, sess.Authenticated())
	require.Equal(t, "token-a", sess.AccessToken)
	require.Equal(t, "token-r", sess.RefreshToken)
	require.Equal(t, "dev@example.com", sess.User.Email)

	// Tokens were persisted before the profile fetch read anything.
	require.Equal(t, "token-a", fetcher.storedAtFetch)

	// The visible URL is scrubbed and the browser lands on home.
	require.Equal(t, []string{"/auth/redirect"}, nav.states)
	require.Equal(t, "/", nav.lastReplace())

	// Storage mirrors the full session.
	stored, err := session.LoadSession(store)
	require.NoError(t, err)
	require.Equal(t, sess, stored)

	// A completed login is announced on the bus.
	require.Eventually(t, func() bool {
		select {
		case e := <-events:
			return e.Type == event.TypeLoginCompleted
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReceiverRejectedTokenClearsSession(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{acceptTok: "something-else"}
	receiver, manager, store, nav, _ := newReceiverFixture(t, fetcher)

	u := callbackURL(t, "http://localhost:5173/auth/redirect?accessToken=bad-token&refreshToken=token-r")
	receiver.Consume(context.Background(), u)

	require.Equal(t, model.Session{}, manager.Session())
	for _, key := range []string{session.KeyUser, session.KeyAccessToken, session.KeyRefreshToken} {
		_, ok := store.Get(key)
		require.False(t, ok, "key %q should be absent", key)
	}
	require.Equal(t, "/login", nav.lastReplace())
}

func TestReceiverMissingTokensGoesToLogin(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{acceptTok: "token-a"}
	receiver, manager, _, nav, _ := newReceiverFixture(t, fetcher)

	u := callbackURL(t, "http://localhost:5173/auth/redirect?accessToken=token-a")
	receiver.Consume(context.Background(), u)

	require.Equal(t, 0, fetcher.calls)
	require.Equal(t, model.Session{}, manager.Session())
	require.Equal(t, "/login", nav.lastReplace())
}

func TestReceiverRunsOnce(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		acceptTok: "token-a",
		user:      model.User{Email: "dev@example.com", Name: "Dev One"},
	}
	receiver, _, _, nav, _ := newReceiverFixture(t, fetcher)

	u := callbackURL(t, "http://localhost:5173/auth/redirect?accessToken=token-a&refreshToken=token-r")
	receiver.Consume(context.Background(), u)
	receiver.Consume(context.Background(), u)
	receiver.Consume(context.Background(), u)

	require.Equal(t, 1, fetcher.calls)
	require.Equal(t, []string{"/auth/redirect"}, nav.states)
}
