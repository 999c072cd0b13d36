//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"codepair/internal/config"
	"codepair/internal/handler"
	"codepair/internal/middleware"
	"codepair/internal/oauth"
	"codepair/internal/router"
	"codepair/internal/token"
)

const (
	testGoodCode  = "good-code"
	testUserEmail = "dev@example.com"
	testUserName  = "Dev One"
	testAvatarURL = "https://cdn.example.com/a.png"
)

// newFakeGoogle serves the provider side of the OAuth dance: a token
// endpoint that accepts testGoodCode and a userinfo endpoint returning a
// fixed profile.
func newFakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != testGoodCode {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"email":   testUserEmail,
			"name":    testUserName,
			"picture": testAvatarURL,
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newAuthServer wires the full router against a fake provider and returns
// the server plus the token service for minting test tokens directly.
func newAuthServer(t *testing.T, frontendURL string, accessTTL time.Duration) (*httptest.Server, *token.Service) {
	t.Helper()

	google := newFakeGoogle(t)

	cfg := &config.Config{
		ServerPort:       "3000",
		RequestTimeout:   30 * time.Second,
		FrontendURL:      frontendURL,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	tokens := token.NewService("test-access-secret", "test-refresh-secret", accessTTL, 24*time.Hour)
	provider := oauth.NewGoogleWithEndpoint("client-id", "client-secret", "http://localhost:3000/auth/google/callback", oauth2.Endpoint{
		AuthURL:  google.URL + "/authorize",
		TokenURL: google.URL + "/token",
	}, google.URL+"/userinfo")

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	authHandler := handler.NewAuthHandler(tokens, provider, frontendURL)

	server := httptest.NewServer(router.New(cfg, authMiddleware, authHandler))
	t.Cleanup(server.Close)

	return server, tokens
}

// noRedirectClient stops at the first redirect so tests can inspect the
// Location header.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
