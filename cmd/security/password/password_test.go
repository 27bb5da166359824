package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cheap keeps argon2 fast in tests.
func cheap() Config {
	cfg := DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestHashAndVerify(t *testing.T) {
	cfg := cheap()

	h, err := cfg.Hash("secret123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := cfg.Verify(h, "secret123")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cfg.Verify(h, "secret124")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHash_SaltedPerCall(t *testing.T) {
	cfg := cheap()
	a, err := cfg.Hash("secret123")
	require.NoError(t, err)
	b, err := cfg.Hash("secret123")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerify_InvalidHash(t *testing.T) {
	cfg := cheap()

	for _, h := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=0$c2FsdHNhbHQ$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5",
	} {
		ok, err := cfg.Verify(h, "whatever")
		require.ErrorIs(t, err, ErrInvalidHash, h)
		require.False(t, ok)
	}
}

func TestVerify_RefusesOversizedParams(t *testing.T) {
	cfg := cheap()
	huge := "$argon2id$v=19$m=1048576,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"

	ok, err := cfg.Verify(huge, "whatever")
	require.ErrorIs(t, err, ErrInvalidHash)
	require.False(t, ok)
}

func TestDummyHash_Verifiable(t *testing.T) {
	cfg := cheap()
	h, err := cfg.DummyHash()
	require.NoError(t, err)

	ok, err := cfg.Verify(h, "secret123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidate(t *testing.T) {
	cfg := cheap()
	cfg.Policy.MaxLength = 16

	require.ErrorIs(t, cfg.Validate("short"), ErrPasswordTooShort)
	require.ErrorIs(t, cfg.Validate("this password is definitely too long"), ErrPasswordTooLong)
	require.NoError(t, cfg.Validate("secret123"))

	_, err := cfg.Hash("short")
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestPolicy_RejectVeryWeak(t *testing.T) {
	cfg := cheap()
	cfg.Policy.RejectVeryWeak = true

	for _, pw := range []string{"password", "11111111", "aaaaaaaaaa", "12345670"} {
		require.ErrorIs(t, cfg.Validate(pw), ErrWeakPassword, pw)
	}
	require.NoError(t, cfg.Validate("a-very-ok-pass"))
	require.NoError(t, cfg.Validate("123456789012"))
}
