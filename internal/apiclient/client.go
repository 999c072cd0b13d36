package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"codepair/internal/event"
	"codepair/internal/model"
	"codepair/internal/session"
)

// Client is the typed API surface over the intercepting transport. It also
// satisfies session.ProfileLoader for the manager's reconciliation rule.
type Client struct {
	backendURL string
	http       *http.Client
	plain      *http.Client
}

func New(backendURL string, store session.Store, invalidate Invalidator, bus event.Bus) *Client {
	backendURL = strings.TrimRight(backendURL, "/")

	return &Client{
		backendURL: backendURL,
		http: &http.Client{
			Transport: NewTransport(nil, store, backendURL, invalidate, bus),
		},
		plain: &http.Client{},
	}
}

// Profile fetches the authenticated user through the interceptor, so an
// expired access token gets its one silent refresh.
func (c *Client) Profile(ctx context.Context) (model.User, error) {
	return c.profile(ctx, c.http, "")
}

// ProfileWithToken fetches the profile with an explicit token, bypassing the
// interceptor. The redirect receiver uses this before any session exists.
func (c *Client) ProfileWithToken(ctx context.Context, accessToken string) (model.User, error) {
	return c.profile(ctx, c.plain, accessToken)
}

// Refresh exchanges a refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+"/refresh-token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.plain.Do(req)
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

	return payload.AccessToken, nil
}

// Logout notifies the server. The server holds no session state, so this is
// an acknowledgment only; the local session is cleared by the manager.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+"/logout", nil)
	if err != nil {
		return err
	}

	resp, err := c.plain.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout failed with status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) profile(ctx context.Context, client *http.Client, accessToken string) (model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.backendURL+"/profile", nil)
	if err != nil {
		return model.User{}, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return model.User{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return model.User{}, model.ErrInvalidOrExpiredToken
	default:
		return model.User{}, fmt.Errorf("profile fetch failed with status %d", resp.StatusCode)
	}

	var payload model.ProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.User{}, err
	}

	return payload.User, nil
}
