package revocation

import (
	"context"
	"errors"
	"time"

	"blog/cmd/internal/pgutil"
	"blog/cmd/security/token"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the token_blacklist, refresh_token_sets
// and refresh_token_members tables. The pool is owned by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time

	blacklist string
	sets      string
	members   string
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("revocation: nil pool")
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{
		pool:      pool,
		now:       cfg.now,
		blacklist: pgutil.Ident(cfg.schema, "token_blacklist"),
		sets:      pgutil.Ident(cfg.schema, "refresh_token_sets"),
		members:   pgutil.Ident(cfg.schema, "refresh_token_members"),
	}, nil
}

// Blacklist implements Store.
func (s *PostgresStore) Blacklist(ctx context.Context, tok string, ttl time.Duration) error {
	const op = "revocation.Blacklist"
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.blacklist+` (token_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`, token.Fingerprint(tok), s.now().Add(ttl))
	if err != nil {
		return unavailable(op, err)
	}
	return nil
}

// IsBlacklisted implements Store.
func (s *PostgresStore) IsBlacklisted(ctx context.Context, tok string) (bool, error) {
	const op = "revocation.IsBlacklisted"

	var found bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM `+s.blacklist+`
			 WHERE token_hash = $1 AND expires_at > $2
		)
	`, token.Fingerprint(tok), s.now()).Scan(&found)
	if err != nil {
		return false, unavailable(op, err)
	}
	return found, nil
}

// AddRefreshToken implements Store in one transaction on the user's set:
// drop the set if expired, upsert it with GREATEST(expires_at), insert the member.
func (s *PostgresStore) AddRefreshToken(ctx context.Context, userID, tok string, ttl time.Duration) error {
	const op = "revocation.AddRefreshToken"
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	now := s.now()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return unavailable(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM `+s.sets+` WHERE user_id = $1 AND expires_at <= $2`,
		userID, now,
	); err != nil {
		return unavailable(op, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.sets+` AS s (user_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET expires_at = GREATEST(s.expires_at, EXCLUDED.expires_at)
	`, userID, now.Add(ttl)); err != nil {
		return unavailable(op, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+s.members+` (user_id, token_hash)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, token.Fingerprint(tok)); err != nil {
		return unavailable(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// IsValidRefreshToken implements Store.
func (s *PostgresStore) IsValidRefreshToken(ctx context.Context, userID, tok string) (bool, error) {
	const op = "revocation.IsValidRefreshToken"

	var found bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			  FROM `+s.members+` m
			  JOIN `+s.sets+` s ON s.user_id = m.user_id
			 WHERE m.user_id = $1 AND m.token_hash = $2 AND s.expires_at > $3
		)
	`, userID, token.Fingerprint(tok), s.now()).Scan(&found)
	if err != nil {
		return false, unavailable(op, err)
	}
	return found, nil
}

// RemoveRefreshToken implements Store. Concurrent callers race on the row
// delete; exactly one sees true.
func (s *PostgresStore) RemoveRefreshToken(ctx context.Context, userID, tok string) (bool, error) {
	const op = "revocation.RemoveRefreshToken"

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.members+` m
		 USING `+s.sets+` s
		 WHERE m.user_id = $1 AND m.token_hash = $2
		   AND s.user_id = m.user_id AND s.expires_at > $3
	`, userID, token.Fingerprint(tok), s.now())
	if err != nil {
		return false, unavailable(op, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveAllRefreshTokens implements Store. Members go with the set (ON DELETE CASCADE).
func (s *PostgresStore) RemoveAllRefreshTokens(ctx context.Context, userID string) error {
	const op = "revocation.RemoveAllRefreshTokens"

	if _, err := s.pool.Exec(ctx, `DELETE FROM `+s.sets+` WHERE user_id = $1`, userID); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// Purge implements Store.
func (s *PostgresStore) Purge(ctx context.Context) (int, error) {
	const op = "revocation.Purge"
	now := s.now()

	bl, err := s.pool.Exec(ctx, `DELETE FROM `+s.blacklist+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, unavailable(op, err)
	}
	sets, err := s.pool.Exec(ctx, `DELETE FROM `+s.sets+` WHERE expires_at <= $1`, now)
	if err != nil {
		return int(bl.RowsAffected()), unavailable(op, err)
	}
	return int(bl.RowsAffected() + sets.RowsAffected()), nil
}

// Close implements Store. The pool belongs to the caller, so this is a no-op.
func (s *PostgresStore) Close() error { return nil }
