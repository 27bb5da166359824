package identity

import (
	"testing"

	"blog/cmd/internal/pgutil/pgtest"

	"github.com/stretchr/testify/require"
)

// Integration tests are opt-in and require BLOG_TEST_DATABASE_URL.

func TestPostgresStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		pool, schema := pgtest.Open(t)
		s, err := NewPostgresStore(pool, testHasher(), WithSchema(schema))
		require.NoError(t, err)
		return s
	})
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(nil, testHasher())
	require.Error(t, err)

	_, err = NewPostgresStore(nil, testHasher(), WithSchema("bad-schema"))
	require.Error(t, err)
}
