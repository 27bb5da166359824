package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"blog/cmd/identity/ids"

	"github.com/golang-jwt/jwt/v5"
)

// maxTokenBytes bounds parser input.
const maxTokenBytes = 4096

// Config is the codec configuration. Secret and algorithm are process-wide.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Codec creates and verifies HS256 access and refresh tokens.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	method     jwt.SigningMethod
}

// NewCodec validates the secret and returns a ready Codec.
// A bad secret is the only startup failure this package reports.
func NewCodec(cfg Config) (*Codec, error) {
	secret, err := checkSecret(cfg.Secret, MinSecretBytes)
	if err != nil {
		return nil, err
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token: non-positive ttl (access=%s refresh=%s)", cfg.AccessTTL, cfg.RefreshTTL)
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &Codec{
		secret:     key,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		method:     jwt.SigningMethodHS256,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// CreateAccessToken signs sub with exp = now+ttl (second precision).
// The output is deterministic for identical subject, expiry and secret.
// A non-positive ttl means the configured access TTL.
func (c *Codec) CreateAccessToken(sub Subject, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.accessTTL
	}
	exp := jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(c.method, AccessClaims{Subject: sub, ExpiresAt: exp}).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign access: %w", err)
	}
	return signed, exp.Time, nil
}

// CreateRefreshToken signs {user_id, type:"refresh", jti, exp}.
// A non-positive ttl means the configured refresh TTL.
func (c *Codec) CreateRefreshToken(userID string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.refreshTTL
	}
	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: refresh id: %w", err)
	}
	exp := jwt.NewNumericDate(now.Add(ttl))

	claims := RefreshClaims{
		UserID:    userID,
		Type:      TypeRefresh,
		ID:        jti,
		ExpiresAt: exp,
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign refresh: %w", err)
	}
	return signed, exp.Time, nil
}

// VerifyAccessToken checks signature, structure and expiry (valid iff now < exp).
// Every failure is ErrInvalidToken.
func (c *Codec) VerifyAccessToken(raw string, now time.Time) (AccessClaims, error) {
	var claims AccessClaims
	if err := c.parse(raw, now, &claims, true); err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken is VerifyAccessToken for refresh tokens; it also requires type "refresh".
func (c *Codec) VerifyRefreshToken(raw string, now time.Time) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.parse(raw, now, &claims, true); err != nil {
		return RefreshClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// RemainingTTL returns how long raw stays structurally valid, truncated to whole
// seconds and never below one second. Tokens that cannot be parsed (bad signature
// included) get the configured access TTL so a blacklist entry always has some lifetime.
func (c *Codec) RemainingTTL(raw string, now time.Time) time.Duration {
	var claims jwt.RegisteredClaims
	if err := c.parse(raw, now, &claims, false); err != nil || claims.ExpiresAt == nil {
		return c.accessTTL
	}
	left := claims.ExpiresAt.Sub(now).Truncate(time.Second)
	if left < time.Second {
		return time.Second
	}
	return left
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != c.method {
		return nil, ErrInvalidToken
	}
	return c.secret, nil
}

// parse verifies raw into dst. When strict is true claims are validated
// (exp required, Validate hook) and the payload is re-decoded with unknown
// fields disallowed.
func (c *Codec) parse(raw string, now time.Time, dst jwt.Claims, strict bool) error {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxTokenBytes {
		return ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if !strict {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	p := jwt.NewParser(opts...)

	tok, err := p.ParseWithClaims(raw, dst, c.keyFunc)
	if err != nil || !tok.Valid {
		return ErrInvalidToken
	}
	if !strict {
		return nil
	}
	return decodeStrict(p, raw, dst)
}

func decodeStrict(p *jwt.Parser, raw string, dst jwt.Claims) error {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ErrInvalidToken
	}
	payload, err := p.DecodeSegment(parts[1])
	if err != nil {
		return ErrInvalidToken
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrInvalidToken
	}
	return nil
}
