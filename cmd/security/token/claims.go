package token

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TypeRefresh is the "type" claim carried by every refresh token.
const TypeRefresh = "refresh"

var errMissingClaim = errors.New("missing required claim")

// Subject is the identity embedded in an access token.
type Subject struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AccessClaims is the full payload of an access token.
type AccessClaims struct {
	Subject
	ExpiresAt *jwt.NumericDate `json:"exp"`
	unregistered
}

// GetExpirationTime implements jwt.Claims.
func (c AccessClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }

// Validate implements jwt.ClaimsValidator; it runs after the standard exp check.
func (c AccessClaims) Validate() error {
	if strings.TrimSpace(c.UserID) == "" || c.Username == "" || c.Email == "" {
		return errMissingClaim
	}
	return nil
}

// RefreshClaims is the full payload of a refresh token.
// ID (jti) keeps two refresh tokens minted for the same user in the same second distinct.
type RefreshClaims struct {
	UserID    string           `json:"user_id"`
	Type      string           `json:"type"`
	ID        string           `json:"jti"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	unregistered
}

// GetExpirationTime implements jwt.Claims.
func (c RefreshClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }

// Validate implements jwt.ClaimsValidator.
func (c RefreshClaims) Validate() error {
	if c.Type != TypeRefresh {
		return jwt.ErrTokenInvalidClaims
	}
	if strings.TrimSpace(c.UserID) == "" || c.ID == "" {
		return errMissingClaim
	}
	return nil
}

// unregistered satisfies the rest of jwt.Claims for payloads that carry only exp.
type unregistered struct{}

func (unregistered) GetIssuedAt() (*jwt.NumericDate, error)  { return nil, nil }
func (unregistered) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (unregistered) GetIssuer() (string, error)              { return "", nil }
func (unregistered) GetSubject() (string, error)             { return "", nil }
func (unregistered) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }
