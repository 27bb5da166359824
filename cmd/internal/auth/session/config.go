package session

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"blog/cmd/security/token"
)

// Refresh tokens live for a fixed week unless configured otherwise.
const (
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// Secret signs every token (HS256, >= token.MinSecretBytes).
	Secret []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// RotateRefreshTokens swaps the refresh token on every refresh.
	// When false the presented refresh token is returned unchanged.
	RotateRefreshTokens bool
}

// DefaultConfig returns the defaults without a secret.
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:      DefaultAccessTokenTTL,
		RefreshTokenTTL:     DefaultRefreshTokenTTL,
		RotateRefreshTokens: true,
	}
}

// ErrConfig is returned for invalid configuration.
var ErrConfig = errors.New("invalid session config")

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - BLOG_JWT_SECRET (>= 32 bytes)
//
// Optional:
//   - BLOG_AUTH_ACCESS_TTL (Go duration, default 30m)
//   - BLOG_AUTH_REFRESH_TTL (Go duration, default 168h)
//   - BLOG_AUTH_ROTATE_REFRESH (bool, default true)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	secret, err := token.SecretFromEnv(token.MinSecretBytes)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrConfig, token.SecretEnvKey, err)
	}
	cfg.Secret = secret

	if cfg.AccessTokenTTL, err = envDuration("BLOG_AUTH_ACCESS_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = envDuration("BLOG_AUTH_REFRESH_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(os.Getenv("BLOG_AUTH_ROTATE_REFRESH")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: BLOG_AUTH_ROTATE_REFRESH", ErrConfig)
		}
		cfg.RotateRefreshTokens = b
	}

	if cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return Config{}, fmt.Errorf("%w: refresh ttl must exceed access ttl", ErrConfig)
	}

	return cfg, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrConfig, key)
	}
	return d, nil
}
