package post

import (
	"context"
	"testing"
	"time"

	"blog/cmd/identity"
	"blog/cmd/internal/pgutil/pgtest"

	"github.com/stretchr/testify/require"
)

// Integration tests are opt-in and require BLOG_TEST_DATABASE_URL.

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain$" + pw, nil }

func TestPostgresStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) (Store, func(t *testing.T) string) {
		pool, schema := pgtest.Open(t)
		s, err := NewPostgresStore(pool, WithSchema(schema))
		require.NoError(t, err)

		users, err := identity.NewPostgresStore(pool, plainHasher{}, identity.WithSchema(schema))
		require.NoError(t, err)

		n := 0
		return s, func(t *testing.T) string {
			n++
			u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
				Email:    "author" + string(rune('a'+n)) + "@example.com",
				Username: "author_" + string(rune('a'+n)),
				Password: "irrelevant",
				Now:      time.Now(),
			})
			require.NoError(t, err)
			return u.ID
		}
	})
}

func TestPostgresStore_UnknownAuthor(t *testing.T) {
	pool, schema := pgtest.Open(t)
	s, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	err = s.Insert(context.Background(), Post{
		ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", AuthorID: "01ARZ3NDEKTSV4RRFFQ69G5FAW",
		Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(nil)
	require.Error(t, err)

	_, err = NewPostgresStore(nil, WithSchema("bad-schema"))
	require.Error(t, err)
}
