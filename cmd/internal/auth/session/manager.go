package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blog/cmd/identity"
	"blog/cmd/internal/auth/revocation"
	"blog/cmd/security/token"
)

// TokenTypeBearer is the token_type returned with every pair.
const TokenTypeBearer = "bearer"

// Credentials is the read side of the user store that sessions need.
type Credentials interface {
	GetUserAuthByEmail(ctx context.Context, email string) (identity.UserAuth, error)
	GetUserByID(ctx context.Context, id string) (identity.User, error)
}

// PasswordVerifier checks a password against a stored hash.
type PasswordVerifier interface {
	Verify(encodedHash, password string) (bool, error)
}

// Recorder receives one outcome per operation ("success" or a failure label).
type Recorder interface {
	AuthOutcome(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthOutcome(string, string) {}

// Pair is the token pair handed to a client.
type Pair struct {
	UserID           string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	TokenType        string
}

// Principal is an authenticated caller.
type Principal struct {
	User        identity.User
	AccessToken string
	ExpiresAt   time.Time
}

// Manager drives login, logout, refresh and logout-all against a revocation store.
type Manager struct {
	codec    *token.Codec
	store    revocation.Store
	users    Credentials
	verifier PasswordVerifier
	rotate   bool

	dummyHash string
	log       *slog.Logger
	rec       Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRecorder sets the outcome recorder (metrics).
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.rec = r
		}
	}
}

// WithDummyHash sets the hash verified when a login email is unknown,
// so unknown and known accounts cost the same.
func WithDummyHash(h string) Option {
	return func(m *Manager) { m.dummyHash = h }
}

// NewManager builds the token codec from cfg and wires the stores.
func NewManager(cfg Config, store revocation.Store, users Credentials, verifier PasswordVerifier, opts ...Option) (*Manager, error) {
	if store == nil || users == nil || verifier == nil {
		return nil, fmt.Errorf("%w: nil dependency", ErrConfig)
	}
	codec, err := token.NewCodec(token.Config{
		Secret:     cfg.Secret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	m := &Manager{
		codec:    codec,
		store:    store,
		users:    users,
		verifier: verifier,
		rotate:   cfg.RotateRefreshTokens,
		log:      slog.Default(),
		rec:      nopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Login verifies credentials and issues a fresh pair. The refresh token joins
// the user's refresh set. Unknown email and wrong password are indistinguishable.
func (m *Manager) Login(ctx context.Context, now time.Time, email, password string) (Pair, error) {
	const op = "login"

	ua, err := m.users.GetUserAuthByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		m.burnDummy(password)
		if identity.IsNotFound(err) || identity.IsInvalidInput(err) {
			return Pair{}, m.fail(ctx, op, ErrAuthenticationFailed, nil)
		}
		return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err)
	}

	ok, err := m.verifier.Verify(ua.PasswordHash, password)
	if err != nil || !ok {
		return Pair{}, m.fail(ctx, op, ErrAuthenticationFailed, err, "user_id", ua.User.ID)
	}

	pair, err := m.issue(ctx, now, ua.User)
	if err != nil {
		return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", ua.User.ID)
	}

	m.succeed(ctx, op, "user_id", ua.User.ID)
	return pair, nil
}

// Logout blacklists the access token for its remaining lifetime.
// It does not validate the token and is idempotent.
func (m *Manager) Logout(ctx context.Context, now time.Time, accessToken string) error {
	const op = "logout"

	if accessToken == "" {
		return m.fail(ctx, op, ErrTokenInvalid, nil)
	}
	if err := m.store.Blacklist(ctx, accessToken, m.codec.RemainingTTL(accessToken, now)); err != nil {
		return m.fail(ctx, op, ErrStoreUnavailable, err)
	}

	m.succeed(ctx, op)
	return nil
}

// Refresh exchanges a recognized refresh token for a new access token.
// With rotation on, the presented refresh token is consumed and a new one
// issued; of two concurrent refreshes with the same token exactly one wins.
func (m *Manager) Refresh(ctx context.Context, now time.Time, refreshToken string) (Pair, error) {
	const op = "refresh"

	claims, err := m.codec.VerifyRefreshToken(refreshToken, now)
	if err != nil {
		return Pair{}, m.fail(ctx, op, ErrTokenInvalid, err)
	}

	member, err := m.store.IsValidRefreshToken(ctx, claims.UserID, refreshToken)
	if err != nil {
		return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", claims.UserID)
	}
	if !member {
		return Pair{}, m.fail(ctx, op, ErrRefreshNotRecognized, nil, "user_id", claims.UserID)
	}

	user, err := m.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Pair{}, m.fail(ctx, op, ErrAuthenticationFailed, err, "user_id", claims.UserID)
		}
		return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", claims.UserID)
	}

	if !m.rotate {
		access, accessExp, err := m.codec.CreateAccessToken(subjectOf(user), 0, now)
		if err != nil {
			return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", user.ID)
		}
		m.succeed(ctx, op, "user_id", user.ID, "rotated", false)
		return Pair{
			UserID:           user.ID,
			AccessToken:      access,
			AccessExpiresAt:  accessExp,
			RefreshToken:     refreshToken,
			RefreshExpiresAt: claims.ExpiresAt.Time,
			TokenType:        TokenTypeBearer,
		}, nil
	}

	// The replacement is registered before the presented token is consumed,
	// so a failure at any step leaves the caller with a usable refresh token.
	pair, err := m.issue(ctx, now, user)
	if err != nil {
		return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", user.ID)
	}

	removed, err := m.store.RemoveRefreshToken(ctx, user.ID, refreshToken)
	if err != nil {
		m.discard(ctx, op, user.ID, pair.RefreshToken)
		return Pair{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", user.ID)
	}
	if !removed {
		m.discard(ctx, op, user.ID, pair.RefreshToken)
		return Pair{}, m.fail(ctx, op, ErrRefreshNotRecognized, nil, "user_id", user.ID, "race", true)
	}

	m.succeed(ctx, op, "user_id", user.ID, "rotated", true)
	return pair, nil
}

// discard drops a refresh token that was registered but never handed out.
func (m *Manager) discard(ctx context.Context, op, userID, refreshToken string) {
	if _, err := m.store.RemoveRefreshToken(ctx, userID, refreshToken); err != nil {
		m.log.WarnContext(ctx, "auth."+op+".discard_fail", "user_id", userID, "err", err)
	}
}

// LogoutAll drops every refresh token of the caller and then blacklists the
// presented access token. An invalid or revoked access token changes nothing.
// Both steps are idempotent, so a failed call can be retried with the same token.
func (m *Manager) LogoutAll(ctx context.Context, now time.Time, accessToken string) error {
	const op = "logout_all"

	claims, err := m.verifyAccess(ctx, op, now, accessToken)
	if err != nil {
		return err
	}

	if err := m.store.RemoveAllRefreshTokens(ctx, claims.UserID); err != nil {
		return m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", claims.UserID)
	}
	if err := m.store.Blacklist(ctx, accessToken, m.codec.RemainingTTL(accessToken, now)); err != nil {
		return m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", claims.UserID)
	}

	m.succeed(ctx, op, "user_id", claims.UserID)
	return nil
}

// Authenticate resolves an access token to its user. The blacklist is
// consulted before the signature so revoked tokens fail fast.
func (m *Manager) Authenticate(ctx context.Context, now time.Time, accessToken string) (Principal, error) {
	const op = "authenticate"

	claims, err := m.verifyAccess(ctx, op, now, accessToken)
	if err != nil {
		return Principal{}, err
	}

	user, err := m.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Principal{}, m.fail(ctx, op, ErrAuthenticationFailed, err, "user_id", claims.UserID)
		}
		return Principal{}, m.fail(ctx, op, ErrStoreUnavailable, err, "user_id", claims.UserID)
	}

	m.rec.AuthOutcome(op, "success")
	return Principal{User: user, AccessToken: accessToken, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (m *Manager) verifyAccess(ctx context.Context, op string, now time.Time, accessToken string) (token.AccessClaims, error) {
	if accessToken == "" {
		return token.AccessClaims{}, m.fail(ctx, op, ErrTokenInvalid, nil)
	}

	revoked, err := m.store.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return token.AccessClaims{}, m.fail(ctx, op, ErrStoreUnavailable, err)
	}
	if revoked {
		return token.AccessClaims{}, m.fail(ctx, op, ErrTokenBlacklisted, nil)
	}

	claims, err := m.codec.VerifyAccessToken(accessToken, now)
	if err != nil {
		return token.AccessClaims{}, m.fail(ctx, op, ErrTokenInvalid, err)
	}
	return claims, nil
}

// issue mints a pair and registers the refresh token. On error nothing is returned.
func (m *Manager) issue(ctx context.Context, now time.Time, user identity.User) (Pair, error) {
	access, accessExp, err := m.codec.CreateAccessToken(subjectOf(user), 0, now)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := m.codec.CreateRefreshToken(user.ID, 0, now)
	if err != nil {
		return Pair{}, err
	}
	if err := m.store.AddRefreshToken(ctx, user.ID, refresh, m.codec.RefreshTTL()); err != nil {
		return Pair{}, err
	}

	return Pair{
		UserID:           user.ID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		TokenType:        TokenTypeBearer,
	}, nil
}

func (m *Manager) burnDummy(password string) {
	if m.dummyHash == "" {
		return
	}
	_, _ = m.verifier.Verify(m.dummyHash, password)
}

func (m *Manager) fail(ctx context.Context, op string, kind, cause error, attrs ...any) error {
	label := kindLabel(kind)
	m.rec.AuthOutcome(op, label)

	level := slog.LevelInfo
	switch kind {
	case ErrStoreUnavailable:
		level = slog.LevelError
	case ErrRefreshNotRecognized:
		level = slog.LevelWarn
	}
	args := append([]any{"reason", label}, attrs...)
	if cause != nil && kind == ErrStoreUnavailable {
		args = append(args, "err", cause)
	}
	m.log.Log(ctx, level, "auth."+op+".fail", args...)

	return &Error{Op: op, Kind: kind, Err: cause}
}

func (m *Manager) succeed(ctx context.Context, op string, attrs ...any) {
	m.rec.AuthOutcome(op, "success")
	m.log.InfoContext(ctx, "auth."+op+".ok", attrs...)
}

func subjectOf(u identity.User) token.Subject {
	return token.Subject{UserID: u.ID, Username: u.Username, Email: u.Email}
}
