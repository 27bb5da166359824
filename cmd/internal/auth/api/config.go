package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"

	"blog/cmd/internal/httpx"
)

// Config controls auth API request handling.
type Config struct {
	// TrustProxy takes the client IP for audit records from X-Forwarded-For / X-Real-IP.
	TrustProxy   bool
	MaxBodyBytes int64

	// LoginIPMax failed logins per client address within LoginIPWindow answer 429.
	// Zero disables the throttle. Only auditors that persist events can count.
	LoginIPMax    int
	LoginIPWindow time.Duration
}

// LoadConfigFromEnv loads auth API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	return Config{
		TrustProxy:   envBool("BLOG_AUTH_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("BLOG_AUTH_MAX_BODY_BYTES", httpx.DefaultMaxBodyBytes),

		LoginIPMax:    int(envInt64("BLOG_AUTH_LOGIN_IP_MAX", 20)),
		LoginIPWindow: envDuration("BLOG_AUTH_LOGIN_IP_WINDOW", 15*time.Minute),
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
