// Package migrations embeds the blog schema and applies it with goose.
//
// Migrations use unqualified table names; the target schema is selected by
// the connection search_path (see app.NewDBPool).
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// FS holds the SQL migrations.
//
//go:embed *.sql
var FS embed.FS

type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// newMigrator is a seam for tests.
var newMigrator = func(db *sql.DB) (migrator, error) {
	return goose.NewProvider(goose.DialectPostgres, db, FS)
}

// EnsureSchema creates schema if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("migrations: create schema: %w", err)
	}
	return nil
}

// Up applies every pending migration through the pool.
func Up(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	return up(ctx, db, log)
}

func up(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	m, err := newMigrator(db)
	if err != nil {
		return fmt.Errorf("migrations: provider: %w", err)
	}

	results, err := m.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		log.Info("db.migrate.applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	if len(results) == 0 {
		log.Info("db.migrate.up_to_date")
	}
	return nil
}
