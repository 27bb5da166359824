package token

import "errors"

// Public, stable errors for callers.
var (
	// ErrInvalidToken covers bad signatures, malformed input, wrong token type and expiry alike.
	ErrInvalidToken = errors.New("invalid token")

	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")
)
