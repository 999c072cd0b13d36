package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"codepair/internal/event"
	"codepair/internal/model"
)

// ProfileLoader fetches the authenticated profile using the stored access
// token. Implemented by the intercepting API client.
type ProfileLoader interface {
	Profile(ctx context.Context) (model.User, error)
}

// Update is a partial session mutation: nil fields are left untouched,
// non-nil fields overwrite. Applying the same update twice yields the same
// session as applying it once.
type Update struct {
	User         *model.User
	AccessToken  *string
	RefreshToken *string
}

// Manager owns the process-wide session state. It mirrors every mutation
// into the Store, publishes lifecycle events instead of navigating, and
// enforces the reconciliation rule: an access token without a user triggers
// an asynchronous profile fetch (or logout when the fetch fails).
type Manager struct {
	mu          sync.RWMutex
	current     model.Session
	store       Store
	bus         event.Bus
	loader      ProfileLoader
	reconciling bool

	unsubscribe func()
}

func NewManager(store Store, bus event.Bus) *Manager {
	m := &Manager{store: store, bus: bus}

	sess, err := LoadSession(store)
	if err != nil {
		if errors.Is(err, model.ErrMalformedSession) {
			slog.Warn("stored session is corrupt, logging out", "error", err)
		}
		m.Logout()
	} else {
		m.current = sess
	}

	// The HTTP interceptor persists refreshed access tokens straight into
	// the store; re-sync the in-memory copy when that happens.
	ch, unsub := bus.Subscribe()
	m.unsubscribe = unsub
	go func() {
		for e := range ch {
			if e.Type == event.TypeTokenRefreshed {
				m.syncAccessTokenFromStore()
			}
		}
	}()

	return m
}

// SetProfileLoader wires the API client in and evaluates the reconciliation
// rule for the freshly loaded session.
func (m *Manager) SetProfileLoader(loader ProfileLoader) {
	m.mu.Lock()
	m.loader = loader
	m.mu.Unlock()

	m.reconcile()
}

// Session returns a copy of the current session.
func (m *Manager) Session() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Apply merges a partial update into the session, mirrors the changed fields
// into storage, and re-evaluates the reconciliation rule.
func (m *Manager) Apply(u Update) {
	m.mu.Lock()

	if u.User != nil {
		userCopy := *u.User
		m.current.User = &userCopy
		if data, err := json.Marshal(userCopy); err == nil {
			_ = m.store.Set(KeyUser, string(data))
		}
	}
	if u.AccessToken != nil {
		m.current.AccessToken = *u.AccessToken
		_ = m.store.Set(KeyAccessToken, *u.AccessToken)
	}
	if u.RefreshToken != nil {
		m.current.RefreshToken = *u.RefreshToken
		_ = m.store.Set(KeyRefreshToken, *u.RefreshToken)
	}

	snapshot := m.current
	m.mu.Unlock()

	m.bus.Publish(event.Event{Type: event.TypeSessionUpdated, Payload: snapshot})
	m.reconcile()
}

// Logout nulls all three session fields and clears storage. Navigation is
// not performed here: subscribers react to the invalidation event.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.current = model.Session{}
	_ = m.store.Delete(KeyUser)
	_ = m.store.Delete(KeyAccessToken)
	_ = m.store.Delete(KeyRefreshToken)
	m.mu.Unlock()

	m.bus.Publish(event.Event{Type: event.TypeSessionInvalidated})
}

// Close tears down the bus subscription.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// reconcile fetches the profile when a token is present without a user.
// Only one fetch is in flight at a time.
func (m *Manager) reconcile() {
	m.mu.Lock()
	needed := m.current.AccessToken != "" && m.current.User == nil && m.loader != nil && !m.reconciling
	if needed {
		m.reconciling = true
	}
	loader := m.loader
	m.mu.Unlock()

	if !needed {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		user, err := loader.Profile(ctx)

		m.mu.Lock()
		m.reconciling = false
		stillNeeded := m.current.AccessToken != "" && m.current.User == nil
		m.mu.Unlock()

		if !stillNeeded {
			return
		}

		if err != nil {
			slog.Warn("profile fetch failed, logging out", "error", err)
			m.Logout()
			return
		}

		m.Apply(Update{User: &user})
	}()
}

func (m *Manager) syncAccessTokenFromStore() {
	tok, ok := m.store.Get(KeyAccessToken)
	if !ok {
		return
	}

	m.mu.Lock()
	m.current.AccessToken = tok
	m.mu.Unlock()
}
