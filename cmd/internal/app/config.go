package app

import (
	"fmt"
	"strings"
	"time"

	"blog/cmd/internal/pgutil"
)

// Revocation backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32
	// DBMigrate applies embedded migrations at startup.
	DBMigrate bool

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// RevocationBackend is "memory" or "postgres". Empty picks postgres when a DB is configured.
	RevocationBackend string
	JanitorInterval   time.Duration

	MetricsEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr:  EnvString("BLOG_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BLOG_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("BLOG_LOG_FORMAT", "json")),

		ReadHeaderTimeout: EnvDuration("BLOG_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BLOG_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BLOG_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BLOG_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("BLOG_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("BLOG_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BLOG_DATABASE_URL", ""),
		DBSchema:    EnvString("BLOG_DB_SCHEMA", pgutil.DefaultSchema),
		DBMaxConns:  EnvInt32("BLOG_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BLOG_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("BLOG_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("BLOG_READINESS_REQUIRE_DB", false),

		RevocationBackend: strings.ToLower(EnvString("BLOG_REVOCATION_BACKEND", "")),
		JanitorInterval:   EnvDuration("BLOG_JANITOR_INTERVAL", time.Minute),

		MetricsEnabled: EnvBool("BLOG_METRICS", true),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("config: BLOG_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}

	if _, err := pgutil.CheckSchema(c.DBSchema); err != nil {
		return fmt.Errorf("config: BLOG_DB_SCHEMA: %w", err)
	}

	switch c.RevocationBackend {
	case "", BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: BLOG_REVOCATION_BACKEND=postgres requires BLOG_DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown BLOG_REVOCATION_BACKEND %q", c.RevocationBackend)
	}
	return nil
}

// revocationBackend resolves the empty default.
func (c Config) revocationBackend() string {
	if c.RevocationBackend != "" {
		return c.RevocationBackend
	}
	if c.DatabaseURL != "" {
		return BackendPostgres
	}
	return BackendMemory
}
