package redirect

import (
	"context"
	"net/url"
	"sync"

	"codepair/internal/event"
	"codepair/internal/model"
	"codepair/internal/session"
)

// Navigator abstracts the browser history API: ReplaceState rewrites the
// visible URL without reloading, Replace navigates with history replacement.
type Navigator interface {
	ReplaceState(path string)
	Replace(path string)
}

// ProfileFetcher fetches a profile with an explicit access token, before any
// session exists to intercept for.
type ProfileFetcher interface {
	ProfileWithToken(ctx context.Context, accessToken string) (model.User, error)
}

// Receiver consumes the OAuth callback URL exactly once per page load:
// persist the tokens, fetch the profile, hydrate the session, scrub the
// query string, and land on the home route.
type Receiver struct {
	once     sync.Once
	sessions *session.Manager
	store    session.Store
	fetcher  ProfileFetcher
	nav      Navigator
	bus      event.Bus
}

func NewReceiver(sessions *session.Manager, store session.Store, fetcher ProfileFetcher, nav Navigator, bus event.Bus) *Receiver {
	return &Receiver{
		sessions: sessions,
		store:    store,
		fetcher:  fetcher,
		nav:      nav,
		bus:      bus,
	}
}

// Consume handles the /auth/redirect URL. Subsequent calls are no-ops.
func (r *Receiver) Consume(ctx context.Context, u *url.URL) {
	r.once.Do(func() {
		r.consume(ctx, u)
	})
}

func (r *Receiver) consume(ctx context.Context, u *url.URL) {
	query := u.Query()
	accessToken := query.Get("accessToken")
	refreshToken := query.Get("refreshToken")

	if accessToken == "" || refreshToken == "" {
		r.nav.Replace("/login")
		return
	}

	// Tokens must be observably persisted before the profile fetch; the
	// interceptor reads them from storage.
	_ = r.store.Set(session.KeyAccessToken, accessToken)
	_ = r.store.Set(session.KeyRefreshToken, refreshToken)

	user, err := r.fetcher.ProfileWithToken(ctx, accessToken)
	if err != nil {
		// Bad token: drop the partial session entirely.
		r.sessions.Logout()
		r.nav.Replace("/login")
		return
	}

	r.sessions.Apply(session.Update{
		User:         &user,
		AccessToken:  &accessToken,
		RefreshToken: &refreshToken,
	})

	if r.bus != nil {
		r.bus.Publish(event.Event{Type: event.TypeLoginCompleted, Payload: user})
	}

	// Scrub the tokens from the visible URL, then go home.
	r.nav.ReplaceState(u.Path)
	r.nav.Replace("/")
}
