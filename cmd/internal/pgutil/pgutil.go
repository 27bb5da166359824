// Package pgutil holds the small pgx helpers shared by the Postgres stores.
package pgutil

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultSchema is the schema every store uses unless configured otherwise.
const DefaultSchema = "blog"

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CheckSchema trims and validates a schema name as a legal PostgreSQL identifier.
func CheckSchema(schema string) (string, error) {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		return "", fmt.Errorf("pgutil: empty schema")
	}
	if len(schema) > 63 || !identRe.MatchString(schema) {
		return "", fmt.Errorf("pgutil: invalid schema identifier %q", schema)
	}
	return schema, nil
}

// Ident returns a safely quoted schema-qualified table name.
func Ident(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// UniqueViolation reports the violated constraint name for a 23505 error.
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(pgErr.ConstraintName)), true
}

// ForeignKeyViolation reports whether err is a 23503 error.
func ForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
