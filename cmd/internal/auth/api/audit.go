package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"time"

	"blog/cmd/internal/pgutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuditEvent is one security-relevant auth outcome.
type AuditEvent struct {
	Action    string
	UserID    string
	IP        net.IP
	UserAgent string
	Meta      map[string]any
}

// Auditor records auth events. Implementations must not fail the request.
type Auditor interface {
	Record(ctx context.Context, ev AuditEvent)
}

// LogAuditor writes audit events to the structured log.
type LogAuditor struct {
	Log *slog.Logger
}

// Record implements Auditor.
func (a LogAuditor) Record(ctx context.Context, ev AuditEvent) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	args := []any{"action", ev.Action}
	if ev.UserID != "" {
		args = append(args, "user_id", ev.UserID)
	}
	if ev.IP != nil {
		args = append(args, "ip", ev.IP.String())
	}
	for k, v := range ev.Meta {
		args = append(args, k, v)
	}
	log.InfoContext(ctx, "audit", args...)
}

// FailureCounter reports recent failed logins from one client address.
// Auditors that persist events implement it; the login throttle uses it.
type FailureCounter interface {
	LoginFailuresByIP(ctx context.Context, ip net.IP, since time.Time) (int, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAuditor inserts audit events into the audit_log table.
type PostgresAuditor struct {
	db    querier
	log   *slog.Logger
	table string
}

// NewPostgresAuditor builds an auditor over db (usually a *pgxpool.Pool).
func NewPostgresAuditor(db querier, schema string, log *slog.Logger) (*PostgresAuditor, error) {
	if schema == "" {
		schema = pgutil.DefaultSchema
	}
	schema, err := pgutil.CheckSchema(schema)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAuditor{db: db, log: log, table: pgutil.Ident(schema, "audit_log")}, nil
}

// Record implements Auditor. Insert failures are logged and dropped.
func (a *PostgresAuditor) Record(ctx context.Context, ev AuditEvent) {
	if a == nil || a.db == nil {
		return
	}
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}

	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := a.db.Exec(ctx, `
		INSERT INTO `+a.table+` (user_id, action, created_at, ip, user_agent, meta)
		VALUES ($1, $2, now(), $3, $4, $5::jsonb)
	`, trimOrNil(ev.UserID), action, ipVal, trimOrNil(ev.UserAgent), metaVal)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

// LoginFailuresByIP implements FailureCounter.
func (a *PostgresAuditor) LoginFailuresByIP(ctx context.Context, ip net.IP, since time.Time) (int, error) {
	if a == nil || a.db == nil || ip == nil {
		return 0, nil
	}
	var n int
	err := a.db.QueryRow(ctx, `
		SELECT count(*)
		FROM `+a.table+`
		WHERE action = $1
		  AND ip = $2
		  AND created_at >= $3
	`, actionLoginFailed, ip.String(), since).Scan(&n)
	return n, err
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
