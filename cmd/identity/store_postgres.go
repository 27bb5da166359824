package identity

import (
	"context"
	"errors"
	"strings"

	"blog/cmd/internal/pgutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
// The pgx pool is owned by the caller; this store never closes it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	hasher Hasher
	users  string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the schema holding the users table (default "blog").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema, err := pgutil.CheckSchema(schema)
		if err != nil {
			return err
		}
		s.users = pgutil.Ident(schema, "users")
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore hashing new passwords with h.
func NewPostgresStore(pool *pgxpool.Pool, h Hasher, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		hasher: h,
		users:  pgutil.Ident(pgutil.DefaultSchema, "users"),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("identity: nil pool")
	}
	if st.hasher == nil {
		return nil, errors.New("identity: nil hasher")
	}
	return st, nil
}

// CreateUser implements Store. Uniqueness is enforced by the
// uq_users_email_norm and uq_users_username_norm constraints.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	row, err := prepareUser(op, s.hasher, in)
	if err != nil {
		return User{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.users+` (
		     id, email, email_norm, username, username_norm, password_hash, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID, row.Email, row.EmailNorm, row.Username, row.UsernameNorm, row.PasswordHash, row.CreatedAt,
	)
	if err != nil {
		if c, ok := pgutil.UniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: conflictField(c)}
		}
		return User{}, err
	}

	return row.User, nil
}

// GetUserAuthByEmail implements Store.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	var ua UserAuth
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, username, created_at, password_hash
		   FROM `+s.users+`
		  WHERE email_norm = $1`,
		NormalizeEmail(email),
	).Scan(&ua.User.ID, &ua.User.Email, &ua.User.Username, &ua.User.CreatedAt, &ua.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return UserAuth{}, err
	}
	return ua, nil
}

// GetUserByID implements Store.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, username, created_at
		   FROM `+s.users+`
		  WHERE id = $1`,
		strings.TrimSpace(id),
	).Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// conflictField maps a constraint name to a logical field.
// Stable constraint names first, substring heuristics second.
func conflictField(constraint string) string {
	switch constraint {
	case "uq_users_email_norm":
		return "email"
	case "uq_users_username_norm":
		return "username"
	}
	switch {
	case strings.Contains(constraint, "email"):
		return "email"
	case strings.Contains(constraint, "username"):
		return "username"
	default:
		return "unique"
	}
}
