// Package revocation records revoked access tokens and the live refresh tokens of each user.
//
// Both concerns are TTL-bound keys: a blacklist entry lives for the remaining
// lifetime of the token it revokes, and a user's refresh-token set lives at
// least as long as its newest member. Expiry is passive (reads ignore expired
// keys); Purge reclaims the space.
//
// Tokens are keyed by token.Fingerprint, so implementations never hold raw tokens.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog/cmd/internal/pgutil"
)

var (
	// ErrInvalidTTL is returned for a non-positive TTL.
	ErrInvalidTTL = errors.New("revocation: ttl must be positive")

	// ErrUnavailable wraps backend failures so callers can tell them from a negative answer.
	ErrUnavailable = errors.New("revocation: store unavailable")
)

// Store is the revocation boundary used by the session manager.
// Every method is atomic with respect to itself; none spans more than one key or set.
type Store interface {
	// Blacklist inserts token with ttl; repeating the call only refreshes the ttl.
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)

	// AddRefreshToken adds token to userID's set and extends the set ttl to at least ttl.
	AddRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	IsValidRefreshToken(ctx context.Context, userID, token string) (bool, error)

	// RemoveRefreshToken removes one member and reports whether it was present.
	RemoveRefreshToken(ctx context.Context, userID, token string) (bool, error)
	// RemoveAllRefreshTokens deletes userID's whole set.
	RemoveAllRefreshTokens(ctx context.Context, userID string) error

	// Purge deletes expired keys and returns how many were removed.
	Purge(ctx context.Context) (int, error)
	Close() error
}

type config struct {
	now    func() time.Time
	schema string
}

// Option configures a Store implementation.
type Option func(*config) error

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return errors.New("revocation: nil clock")
		}
		c.now = now
		return nil
	}
}

// WithSchema sets the Postgres schema (default "blog"). MemoryStore ignores it.
func WithSchema(schema string) Option {
	return func(c *config) error {
		s, err := pgutil.CheckSchema(schema)
		if err != nil {
			return err
		}
		c.schema = s
		return nil
	}
}

func newConfig(opts []Option) (config, error) {
	c := config{now: time.Now, schema: pgutil.DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&c); err != nil {
			return config{}, err
		}
	}
	return c, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
