package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"codepair/internal/event"
	"codepair/internal/model"
	"codepair/internal/session"
)

// Invalidator is what the transport calls when a silent refresh fails and
// the session can no longer be salvaged. Implemented by session.Manager.
type Invalidator interface {
	Logout()
}

// Transport attaches the stored access token to outgoing requests and, on a
// 401, performs exactly one silent refresh before replaying the original
// request. A second 401 propagates to the caller; there is never a loop.
type Transport struct {
	base       http.RoundTripper
	store      session.Store
	refreshURL string
	invalidate Invalidator
	bus        event.Bus
}

func NewTransport(base http.RoundTripper, store session.Store, backendURL string, invalidate Invalidator, bus event.Bus) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{
		base:       base,
		store:      store,
		refreshURL: backendURL + "/refresh-token",
		invalidate: invalidate,
		bus:        bus,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	if tok, ok := t.store.Get(session.KeyAccessToken); ok && tok != "" {
		attempt.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := t.base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The refresh endpoint itself must never trigger another refresh.
	if req.URL.Path == "/refresh-token" {
		return resp, nil
	}

	refreshToken, ok := t.store.Get(session.KeyRefreshToken)
	if !ok || refreshToken == "" {
		t.sessionInvalid()
		return resp, nil
	}

	newAccess, refreshErr := t.refresh(req.Context(), refreshToken)
	if refreshErr != nil {
		t.sessionInvalid()
		// The caller receives the original rejection.
		return resp, nil
	}

	_ = t.store.Set(session.KeyAccessToken, newAccess)
	if t.bus != nil {
		t.bus.Publish(event.Event{Type: event.TypeTokenRefreshed})
	}

	retry, retryErr := rewound(req)
	if retryErr != nil {
		return resp, nil
	}

	resp.Body.Close()
	retry.Header.Set("Authorization", "Bearer "+newAccess)
	return t.base.RoundTrip(retry)
}

func (t *Transport) refresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.ErrInvalidOrExpiredToken
	}

	var payload model.RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", model.ErrInvalidOrExpiredToken
	}

	return payload.AccessToken, nil
}

func (t *Transport) sessionInvalid() {
	if t.invalidate != nil {
		t.invalidate.Logout()
		return
	}

	_ = t.store.Delete(session.KeyAccessToken)
	_ = t.store.Delete(session.KeyRefreshToken)
	if t.bus != nil {
		t.bus.Publish(event.Event{Type: event.TypeSessionInvalidated})
	}
}

// rewound clones the original request with a fresh body for the single
// replay. Requests whose bodies cannot be replayed are not retried.
func rewound(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.GetBody == nil {
		if req.Body != nil {
			return nil, fmt.Errorf("request body is not replayable")
		}
		return clone, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body

	return clone, nil
}
