package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"codepair/internal/model"
)

type stubVerifier struct {
	claims model.Claims
	err    error
}

func (s stubVerifier) VerifyAccess(string) (model.Claims, error) {
	return s.claims, s.err
}

func TestRequireAuthAttachesClaims(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(stubVerifier{claims: model.Claims{Email: "dev@example.com", Name: "Dev One"}})

	var got model.Claims
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		got = claims
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dev@example.com", got.Email)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(stubVerifier{})
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"Missing token"}`, rec.Body.String())
}

func TestRequireAuthInvalidToken(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(stubVerifier{err: model.ErrInvalidOrExpiredToken})
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"Invalid or expired token"}`, rec.Body.String())
}
