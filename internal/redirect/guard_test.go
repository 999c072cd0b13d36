package redirect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codepair/internal/event"
	"codepair/internal/model"
	"codepair/internal/session"
)

type staticSession struct {
	sess model.Session
}

func (s staticSession) Session() model.Session { return s.sess }

func authedSession() staticSession {
	return staticSession{sess: model.Session{
		User:         &model.User{Email: "dev@example.com", Name: "Dev One"},
		AccessToken:  "token-a",
		RefreshToken: "token-r",
	}}
}

func TestGuardResolve(t *testing.T) {
	t.Parallel()

	authed := NewGuard(authedSession())
	anon := NewGuard(staticSession{})

	cases := []struct {
		name  string
		guard *Guard
		path  string
		want  string
	}{
		{"anonymous hits protected home", anon, "/", "/login"},
		{"anonymous hits editor room", anon, "/editor/room-42", "/login"},
		{"anonymous hits login", anon, "/login", "/login"},
		{"anonymous hits unknown", anon, "/nope", "/login"},
		{"authenticated hits home", authed, "/", "/"},
		{"authenticated hits editor room", authed, "/editor/room-42", "/editor/room-42"},
		{"authenticated hits login", authed, "/login", "/"},
		{"authenticated hits unknown", authed, "/nope", "/"},
		{"redirect route passes through", anon, "/auth/redirect", "/auth/redirect"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.guard.Resolve(tc.path))
		})
	}
}

func TestGuardTokenWithoutUserIsNotAuthenticated(t *testing.T) {
	t.Parallel()

	guard := NewGuard(staticSession{sess: model.Session{AccessToken: "token-a", RefreshToken: "token-r"}})
	require.Equal(t, "/login", guard.Resolve("/"))
}

func TestNavigateOnInvalidate(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	bus := event.NewBus()
	manager := session.NewManager(store, bus)
	defer manager.Close()

	nav := &fakeNavigator{}
	stop := NavigateOnInvalidate(bus, nav)
	defer stop()

	manager.Logout()

	require.Eventually(t, func() bool {
		return nav.lastReplace() == "/login"
	}, 2*time.Second, 10*time.Millisecond)
}
