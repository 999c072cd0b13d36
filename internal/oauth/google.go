package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"codepair/internal/model"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google mediates between the Google OAuth2 provider and the application's
// own user shape. It owns the code exchange and the profile fetch; token
// minting stays with the token service.
type Google struct {
	conf        *oauth2.Config
	userInfoURL string
}

func NewGoogle(clientID string, clientSecret string, callbackURL string) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

// NewGoogleWithEndpoint builds a provider against a custom endpoint. Used by
// tests to point the exchange and profile fetch at a fake provider.
func NewGoogleWithEndpoint(clientID string, clientSecret string, callbackURL string, endpoint oauth2.Endpoint, userInfoURL string) *Google {
	g := NewGoogle(clientID, clientSecret, callbackURL)
	g.conf.Endpoint = endpoint
	g.userInfoURL = userInfoURL
	return g
}

// AuthCodeURL returns the consent screen URL carrying the given state.
func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange swaps an authorization code for provider tokens.
func (g *Google) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", model.ErrOAuthProvider, err)
	}

	return tok, nil
}

// FetchProfile loads the provider profile and maps it onto the application's
// user shape. An account without an email address is rejected.
func (g *Google) FetchProfile(ctx context.Context, tok *oauth2.Token) (model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: build profile request: %v", model.ErrOAuthProvider, err)
	}

	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: fetch profile: %v", model.ErrOAuthProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.User{}, fmt.Errorf("%w: profile fetch failed (%d): %s", model.ErrOAuthProvider, resp.StatusCode, string(body))
	}

	var profile struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return model.User{}, fmt.Errorf("%w: decode profile: %v", model.ErrOAuthProvider, err)
	}

	if profile.Email == "" {
		return model.User{}, fmt.Errorf("%w: profile has no email", model.ErrOAuthProvider)
	}

	return model.User{
		Email:     profile.Email,
		Name:      profile.Name,
		AvatarURL: profile.Picture,
	}, nil
}
