package token

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// SecretEnvKey is the env var name for the signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "BLOG_JWT_SECRET"

	// MinSecretBytes is the smallest accepted HS256 secret.
	MinSecretBytes = 32
)

// Fingerprint returns the SHA-256 hex digest of a token.
// Persistent stores key on the fingerprint so raw tokens never reach the database.
func Fingerprint(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// SecretFromEnv returns the configured signing secret (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSecretMissing.
// If too short -> ErrSecretTooShort.
func SecretFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(SecretEnvKey))
	if raw == "" {
		return nil, ErrSecretMissing
	}
	return checkSecret([]byte(raw), minBytes)
}

func checkSecret(b []byte, minBytes int) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrSecretMissing
	}
	// Measured in bytes, the key is used raw.
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}
