package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codepair/internal/event"
	"codepair/internal/model"
)

type stubLoader struct {
	user model.User
	err  error
}

func (s stubLoader) Profile(context.Context) (model.User, error) {
	return s.user, s.err
}

func strPtr(s string) *string { return &s }

func TestManagerInitializesFromStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Set(KeyRefreshToken, "token-r"))
	require.NoError(t, store.Set(KeyUser, `{"email":"dev@example.com","name":"Dev One"}`))

	m := NewManager(store, event.NewBus())
	defer m.Close()

	sess := m.Session()
	require.True(t, sess.Authenticated())
	require.Equal(t, "token-a", sess.AccessToken)
	require.Equal(t, "dev@example.com", sess.User.Email)
}

func TestManagerCorruptStoredUserTriggersLogout(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Set(KeyUser, "{corrupt"))

	m := NewManager(store, event.NewBus())
	defer m.Close()

	require.Equal(t, model.Session{}, m.Session())

	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok)
	_, ok = store.Get(KeyUser)
	require.False(t, ok)
}

func TestManagerApplyMirrorsToStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, event.NewBus())
	defer m.Close()

	user := model.User{Email: "dev@example.com", Name: "Dev One"}
	m.Apply(Update{
		User:         &user,
		AccessToken:  strPtr("token-a"),
		RefreshToken: strPtr("token-r"),
	})

	sess := m.Session()
	require.True(t, sess.Authenticated())

	got, ok := store.Get(KeyAccessToken)
	require.True(t, ok)
	require.Equal(t, "token-a", got)

	stored, err := LoadSession(store)
	require.NoError(t, err)
	require.Equal(t, sess, stored)
}

func TestManagerApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, event.NewBus())
	defer m.Close()

	user := model.User{Email: "dev@example.com", Name: "Dev One"}
	update := Update{User: &user, AccessToken: strPtr("token-a"), RefreshToken: strPtr("token-r")}

	m.Apply(update)
	once := m.Session()

	m.Apply(update)
	twice := m.Session()

	require.Equal(t, once, twice)
}

func TestManagerLogoutClearsEverything(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	bus := event.NewBus()
	m := NewManager(store, bus)
	defer m.Close()

	ch, unsub := bus.Subscribe()
	defer unsub()

	user := model.User{Email: "dev@example.com", Name: "Dev One"}
	m.Apply(Update{User: &user, AccessToken: strPtr("token-a"), RefreshToken: strPtr("token-r")})

	m.Logout()

	require.Equal(t, model.Session{}, m.Session())
	for _, key := range []string{KeyUser, KeyAccessToken, KeyRefreshToken} {
		_, ok := store.Get(key)
		require.False(t, ok, "key %q should be absent", key)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type == event.TypeSessionInvalidated {
				return
			}
		case <-deadline:
			t.Fatal("expected a session.invalidated event")
		}
	}
}

func TestManagerReconcilesMissingUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Set(KeyRefreshToken, "token-r"))

	m := NewManager(store, event.NewBus())
	defer m.Close()

	m.SetProfileLoader(stubLoader{user: model.User{Email: "dev@example.com", Name: "Dev One"}})

	require.Eventually(t, func() bool {
		return m.Session().Authenticated()
	}, 2*time.Second, 10*time.Millisecond)

	// The fetched user must also land in storage.
	raw, ok := store.Get(KeyUser)
	require.True(t, ok)
	require.Contains(t, raw, "dev@example.com")
}

func TestManagerReconcileFailureLogsOut(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))

	m := NewManager(store, event.NewBus())
	defer m.Close()

	m.SetProfileLoader(stubLoader{err: errors.New("401 unauthorized")})

	require.Eventually(t, func() bool {
		_, ok := store.Get(KeyAccessToken)
		return !ok && m.Session() == (model.Session{})
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerReconcileRunsAfterEveryMutation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m := NewManager(store, event.NewBus())
	defer m.Close()

	m.SetProfileLoader(stubLoader{user: model.User{Email: "dev@example.com", Name: "Dev One"}})
	require.Nil(t, m.Session().User)

	// Setting a token later (not at startup) must still trigger the fetch.
	m.Apply(Update{AccessToken: strPtr("token-a")})

	require.Eventually(t, func() bool {
		return m.Session().Authenticated()
	}, 2*time.Second, 10*time.Millisecond)
}
