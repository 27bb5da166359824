package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("BLOG_T_STR", "  value ")
	t.Setenv("BLOG_T_BOOL", "nope")
	t.Setenv("BLOG_T_INT", "-3")
	t.Setenv("BLOG_T_INT32", "7")
	t.Setenv("BLOG_T_DUR", "2m")

	require.Equal(t, "value", EnvString("BLOG_T_STR", "def"))
	require.Equal(t, "def", EnvString("BLOG_T_MISSING", "def"))
	require.True(t, EnvBool("BLOG_T_BOOL", true))
	require.Equal(t, 5, EnvInt("BLOG_T_INT", 5))
	require.EqualValues(t, 7, EnvInt32("BLOG_T_INT32", 1))
	require.Equal(t, 2*time.Minute, EnvDuration("BLOG_T_DUR", time.Second))
	require.Equal(t, time.Second, EnvDuration("BLOG_T_MISSING", time.Second))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	ok, err := LoadEnvFile(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = LoadEnvFile("")
	require.NoError(t, err)
	require.False(t, ok)

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BLOG_T_FROM_FILE=file\nBLOG_T_PRESET=file\n"), 0o600))

	t.Setenv("BLOG_T_PRESET", "process")
	t.Setenv("BLOG_T_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("BLOG_T_FROM_FILE"))

	ok, err = LoadEnvFile(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "file", os.Getenv("BLOG_T_FROM_FILE"))
	require.Equal(t, "process", os.Getenv("BLOG_T_PRESET"))
}
