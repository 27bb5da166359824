package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "blog", cfg.DBSchema)
	require.True(t, cfg.DBMigrate)
	require.True(t, cfg.MetricsEnabled)
	require.Equal(t, time.Minute, cfg.JanitorInterval)
	require.Equal(t, BackendMemory, cfg.revocationBackend())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("BLOG_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("BLOG_LOG_FORMAT", "TEXT")
	t.Setenv("BLOG_DATABASE_URL", "postgres://localhost/blog")
	t.Setenv("BLOG_DB_SCHEMA", "blog_dev")
	t.Setenv("BLOG_DB_MAX_CONNS", "4")
	t.Setenv("BLOG_JANITOR_INTERVAL", "30s")
	t.Setenv("BLOG_METRICS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "blog_dev", cfg.DBSchema)
	require.EqualValues(t, 4, cfg.DBMaxConns)
	require.Equal(t, 30*time.Second, cfg.JanitorInterval)
	require.False(t, cfg.MetricsEnabled)
	require.Equal(t, BackendPostgres, cfg.revocationBackend())

	t.Setenv("BLOG_REVOCATION_BACKEND", "memory")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.revocationBackend())
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"log format":        {"BLOG_LOG_FORMAT": "yaml"},
		"schema":            {"BLOG_DB_SCHEMA": "Robert'); DROP"},
		"unknown backend":   {"BLOG_REVOCATION_BACKEND": "redis"},
		"postgres needs db": {"BLOG_REVOCATION_BACKEND": "postgres"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
