package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"codepair/internal/middleware"
	"codepair/internal/model"
	"codepair/internal/token"
	"codepair/pkg/apierror"
)

const stateCookieName = "oauth_state"

// Provider is the slice of the OAuth bridge the handler needs.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, tok *oauth2.Token) (model.User, error)
}

// AuthHandler drives the login state machine: start, provider callback,
// mint, deliver. Tokens ride back to the SPA in the redirect query string,
// which leaks them into browser history and referrer headers; acceptable for
// development only. A production deployment should hand over an opaque
// one-time code in an httpOnly cookie and exchange it via a follow-up POST.
type AuthHandler struct {
	tokens      *token.Service
	provider    Provider
	frontendURL string
}

func NewAuthHandler(tokens *token.Service, provider Provider, frontendURL string) *AuthHandler {
	return &AuthHandler{
		tokens:      tokens,
		provider:    provider,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Google starts the consent flow. The state value is pinned in a short-lived
// cookie and checked again on callback.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles the provider redirect: verify state, exchange the
// code, fetch the profile, mint both tokens, and deliver them to the SPA.
// Any failure redirects to the login route with an error reason instead.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("error") != "" {
		h.redirectError(w, r, "consent-denied")
		return
	}

	state := query.Get("state")
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || cookie.Value != state {
		h.redirectError(w, r, "invalid-state")
		return
	}
	clearStateCookie(w)

	code := query.Get("code")
	if code == "" {
		h.redirectError(w, r, "unauthorized")
		return
	}

	providerToken, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.redirectError(w, r, "unauthorized")
		return
	}

	user, err := h.provider.FetchProfile(r.Context(), providerToken)
	if err != nil {
		h.redirectError(w, r, "unauthorized")
		return
	}

	claims := model.ClaimsFromUser(user)
	accessToken, err := h.tokens.IssueAccess(claims)
	if err != nil {
		h.redirectError(w, r, "unauthorized")
		return
	}
	refreshToken, err := h.tokens.IssueRefresh(claims)
	if err != nil {
		h.redirectError(w, r, "unauthorized")
		return
	}

	params := url.Values{}
	params.Set("accessToken", accessToken)
	params.Set("refreshToken", refreshToken)
	http.Redirect(w, r, h.frontendURL+"/auth/redirect?"+params.Encode(), http.StatusFound)
}

// Refresh mints a new access token from a valid refresh token. No storage is
// consulted: the refresh token's own claims are the source of truth.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("No token"))
		return
	}

	payload.RefreshToken = strings.TrimSpace(payload.RefreshToken)
	if payload.RefreshToken == "" {
		writeError(w, apierror.BadRequest("No token"))
		return
	}

	claims, err := h.tokens.Verify(payload.RefreshToken, token.KindRefresh)
	if err != nil {
		writeError(w, apierror.Unauthorized("Invalid or expired refresh token"))
		return
	}

	accessToken, err := h.tokens.IssueAccess(claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.RefreshResponse{AccessToken: accessToken})
}

// Profile returns the authenticated user, reconstructed from the verified
// access token claims.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, model.ProfileResponse{User: claims.User()})
}

// Logout acknowledges the client-side logout. Tokens are stateless, so there
// is nothing to revoke here; a leaked refresh token stays valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	clearStateCookie(w)
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
