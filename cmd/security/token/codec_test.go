package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{Secret: testSecret, AccessTTL: 30 * time.Minute, RefreshTTL: 7 * 24 * time.Hour})
	require.NoError(t, err)
	return c
}

func testSubject() Subject {
	return Subject{UserID: "01HZX3K5V6W7Y8Z9A0B1C2D3E4", Username: "alice", Email: "a@x.com"}
}

func TestNewCodec_Secret(t *testing.T) {
	_, err := NewCodec(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.ErrorIs(t, err, ErrSecretMissing)

	_, err = NewCodec(Config{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.ErrorIs(t, err, ErrSecretTooShort)

	_, err = NewCodec(Config{Secret: testSecret})
	require.Error(t, err)
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv(SecretEnvKey, "  ")
	_, err := SecretFromEnv(MinSecretBytes)
	require.ErrorIs(t, err, ErrSecretMissing)

	t.Setenv(SecretEnvKey, "too-short")
	_, err = SecretFromEnv(MinSecretBytes)
	require.ErrorIs(t, err, ErrSecretTooShort)

	t.Setenv(SecretEnvKey, string(testSecret))
	b, err := SecretFromEnv(MinSecretBytes)
	require.NoError(t, err)
	require.Equal(t, testSecret, b)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0).UTC()

	tok, exp, err := c.CreateAccessToken(testSubject(), 30*time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(30*time.Minute), exp)

	claims, err := c.VerifyAccessToken(tok, now)
	require.NoError(t, err)
	require.Equal(t, testSubject(), claims.Subject)
	require.True(t, claims.ExpiresAt.Time.Equal(exp))
}

func TestAccessToken_Deterministic(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	a, _, err := c.CreateAccessToken(testSubject(), time.Minute, now)
	require.NoError(t, err)
	b, _, err := c.CreateAccessToken(testSubject(), time.Minute, now)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestAccessToken_ExpiryBoundary(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)
	ttl := 10 * time.Second

	tok, _, err := c.CreateAccessToken(testSubject(), ttl, now)
	require.NoError(t, err)

	_, err = c.VerifyAccessToken(tok, now.Add(ttl-time.Second))
	require.NoError(t, err)

	_, err = c.VerifyAccessToken(tok, now.Add(ttl))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.VerifyAccessToken(tok, now.Add(ttl+time.Second))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, err := NewCodec(Config{Secret: []byte("ffffffffffffffffffffffffffffffff"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	now := time.Now()
	tok, _, err := other.CreateAccessToken(testSubject(), time.Minute, now)
	require.NoError(t, err)

	_, err = c.VerifyAccessToken(tok, now)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	for _, raw := range []string{"", "abc", "a.b.c", strings.Repeat("x", maxTokenBytes+1)} {
		_, err := c.VerifyAccessToken(raw, now)
		require.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
		_, err = c.VerifyRefreshToken(raw, now)
		require.ErrorIs(t, err, ErrInvalidToken, "raw=%q", raw)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	claims := AccessClaims{Subject: testSubject(), ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = c.VerifyAccessToken(tok, now)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = c.VerifyAccessToken(none, now)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_StrictClaims(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()
	exp := now.Add(time.Minute).Unix()

	cases := map[string]jwt.MapClaims{
		"unknown field":    {"user_id": "u1", "username": "alice", "email": "a@x.com", "exp": exp, "admin": true},
		"missing email":    {"user_id": "u1", "username": "alice", "exp": exp},
		"missing exp":      {"user_id": "u1", "username": "alice", "email": "a@x.com"},
		"wrong field type": {"user_id": 42, "username": "alice", "email": "a@x.com", "exp": exp},
	}
	for name, mc := range cases {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(testSecret)
		require.NoError(t, err, name)
		_, err = c.VerifyAccessToken(tok, now)
		require.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestRefreshToken_RoundTripAndType(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	rt, exp, err := c.CreateRefreshToken("u1", 0, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(7*24*time.Hour).Unix(), exp.Unix())

	claims, err := c.VerifyRefreshToken(rt, now)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, TypeRefresh, claims.Type)
	require.Len(t, claims.ID, 26)

	// A refresh token is never an access token and vice versa.
	_, err = c.VerifyAccessToken(rt, now)
	require.ErrorIs(t, err, ErrInvalidToken)

	at, _, err := c.CreateAccessToken(testSubject(), time.Minute, now)
	require.NoError(t, err)
	_, err = c.VerifyRefreshToken(at, now)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken_WrongTypeRejected(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	claims := RefreshClaims{UserID: "u1", Type: "access", ID: "x", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = c.VerifyRefreshToken(tok, now)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken_DistinctPerCall(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	a, _, err := c.CreateRefreshToken("u1", time.Hour, now)
	require.NoError(t, err)
	b, _, err := c.CreateRefreshToken("u1", time.Hour, now)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestRemainingTTL(t *testing.T) {
	c := newTestCodec(t)
	now := time.Unix(1_700_000_000, 0)

	tok, _, err := c.CreateAccessToken(testSubject(), 10*time.Minute, now)
	require.NoError(t, err)

	require.Equal(t, 10*time.Minute, c.RemainingTTL(tok, now))
	require.Equal(t, 4*time.Minute, c.RemainingTTL(tok, now.Add(6*time.Minute)))
	require.Equal(t, time.Second, c.RemainingTTL(tok, now.Add(10*time.Minute-300*time.Millisecond)))

	// Expired but correctly signed: floor of one second.
	require.Equal(t, time.Second, c.RemainingTTL(tok, now.Add(time.Hour)))

	// Unparseable: configured access TTL.
	require.Equal(t, 30*time.Minute, c.RemainingTTL("garbage", now))
	require.Equal(t, 30*time.Minute, c.RemainingTTL(tamper(t, tok), now))
}

func TestFingerprint(t *testing.T) {
	require.Len(t, Fingerprint("abc"), 64)
	require.Equal(t, Fingerprint("abc"), Fingerprint("abc"))
	require.NotEqual(t, Fingerprint("abc"), Fingerprint("abd"))
}

// tamper rewrites the payload's user_id while keeping the original signature.
func tamper(t *testing.T, tok string) string {
	t.Helper()
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	m["user_id"] = "someone-else"
	b, err := json.Marshal(m)
	require.NoError(t, err)

	parts[1] = base64.RawURLEncoding.EncodeToString(b)
	return strings.Join(parts, ".")
}

func TestVerify_TamperedPayload(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()

	tok, _, err := c.CreateAccessToken(testSubject(), time.Minute, now)
	require.NoError(t, err)

	_, err = c.VerifyAccessToken(tamper(t, tok), now)
	require.ErrorIs(t, err, ErrInvalidToken)
}
