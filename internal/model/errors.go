package model

import "errors"

var (
	// Token related errors
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrMissingCredential     = errors.New("missing credential")

	// Session related errors
	ErrMalformedSession = errors.New("malformed session")

	// OAuth related errors
	ErrOAuthProvider = errors.New("oauth provider error")
)
