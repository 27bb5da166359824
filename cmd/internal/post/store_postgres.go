package post

import (
	"context"
	"errors"

	"blog/cmd/internal/pgutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
// The pgx pool is owned by the caller; this store never closes it.
type PostgresStore struct {
	pool  *pgxpool.Pool
	posts string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the schema holding the posts table (default "blog").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema, err := pgutil.CheckSchema(schema)
		if err != nil {
			return err
		}
		s.posts = pgutil.Ident(schema, "posts")
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:  pool,
		posts: pgutil.Ident(pgutil.DefaultSchema, "posts"),
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
		return nil, errors.New("post: nil pool")
	}
	return st, nil
}

// Insert implements Store. An unknown author is invalid input.
func (s *PostgresStore) Insert(ctx context.Context, p Post) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.posts+` (id, author_id, title, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.AuthorID, p.Title, p.Content, p.CreatedAt, p.UpdatedAt,
	)
	if pgutil.ForeignKeyViolation(err) {
		return invalid("post.Insert", "unknown author")
	}
	return err
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (Post, error) {
	var p Post
	err := s.pool.QueryRow(ctx,
		`SELECT id, author_id, title, content, created_at, updated_at
		   FROM `+s.posts+`
		  WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, notFound("post.Get")
	}
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, page Page) ([]Post, error) {
	page = clampPage(page)

	rows, err := s.pool.Query(ctx,
		`SELECT id, author_id, title, content, created_at, updated_at
		   FROM `+s.posts+`
		  ORDER BY created_at DESC, id DESC
		  LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, err
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Post, error) {
		var p Post
		err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Post{}
	}
	return out, nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, p Post) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.posts+`
		    SET title = $3, content = $4, updated_at = $5
		  WHERE id = $1 AND author_id = $2`,
		p.ID, p.AuthorID, p.Title, p.Content, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("post.Update")
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id, authorID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.posts+` WHERE id = $1 AND author_id = $2`,
		id, authorID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("post.Delete")
	}
	return nil
}
