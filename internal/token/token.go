package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"codepair/internal/model"
)

// Kind discriminates which secret signs a token. Access and refresh tokens
// carry the same claims but are never interchangeable.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Service signs and verifies the application's JWTs. It is fully stateless:
// validity is determined by signature and expiry alone, so a leaked refresh
// token stays usable until its natural expiry. Callers should treat that as
// a known limitation of this design.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *Service {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess mints a short-lived access token for the given claims.
func (s *Service) IssueAccess(claims model.Claims) (string, error) {
	return s.sign(claims, KindAccess, s.accessTTL, s.accessSecret)
}

// IssueRefresh mints a refresh token, used solely to obtain new access tokens.
func (s *Service) IssueRefresh(claims model.Claims) (string, error) {
	return s.sign(claims, KindRefresh, s.refreshTTL, s.refreshSecret)
}

// Verify parses a token of the given kind and returns its claims. Signature
// failures, expiry, and kind mismatches all collapse into
// model.ErrInvalidOrExpiredToken; callers get no further detail.
func (s *Service) Verify(tokenString string, kind Kind) (model.Claims, error) {
	secret := s.accessSecret
	if kind == KindRefresh {
		secret = s.refreshSecret
	}

	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, model.ErrInvalidOrExpiredToken
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.Claims{}, model.ErrInvalidOrExpiredToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.Claims{}, model.ErrInvalidOrExpiredToken
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != string(kind) {
		return model.Claims{}, model.ErrInvalidOrExpiredToken
	}

	claims := model.Claims{}
	claims.Email, _ = claimsMap["email"].(string)
	claims.Name, _ = claimsMap["name"].(string)
	claims.AvatarURL, _ = claimsMap["avatarUrl"].(string)

	if claims.Email == "" {
		return model.Claims{}, model.ErrInvalidOrExpiredToken
	}

	return claims, nil
}

// VerifyAccess is the shape the auth middleware consumes.
func (s *Service) VerifyAccess(tokenString string) (model.Claims, error) {
	return s.Verify(tokenString, KindAccess)
}

// AccessTTL exposes the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *Service) sign(claims model.Claims, kind Kind, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now().UTC()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":     claims.Email,
		"name":      claims.Name,
		"avatarUrl": claims.AvatarURL,
		"typ":       string(kind),
		"jti":       uuid.NewString(),
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	})

	return token.SignedString(secret)
}
