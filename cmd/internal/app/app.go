// Package app wires the blog server runtime: config, logging, storage, HTTP routes and background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"blog/cmd/identity"
	authapi "blog/cmd/internal/auth/api"
	"blog/cmd/internal/auth/revocation"
	"blog/cmd/internal/auth/session"
	"blog/cmd/internal/metrics"
	"blog/cmd/internal/migrations"
	"blog/cmd/internal/post"
	postapi "blog/cmd/internal/post/api"
	"blog/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the blog server runtime.
type App struct {
	cfg Config
	log Logger

	metrics    *metrics.Metrics
	dbPool     *pgxpool.Pool
	revocation revocation.Store

	handler http.Handler
}

// New constructs a fully wired App. Session and password settings are read from the environment.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: m}

	var (
		users   identity.Store
		posts   post.Store
		auditor authapi.Auditor = authapi.LogAuditor{Log: log}
	)

	if cfg.DatabaseURL != "" {
		pool, err := openDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		a.dbPool = pool

		pgUsers, err := identity.NewPostgresStore(pool, pwCfg, identity.WithSchema(cfg.DBSchema))
		if err != nil {
			a.close()
			return nil, err
		}
		pgPosts, err := post.NewPostgresStore(pool, post.WithSchema(cfg.DBSchema))
		if err != nil {
			a.close()
			return nil, err
		}
		pgAudit, err := authapi.NewPostgresAuditor(pool, cfg.DBSchema, log)
		if err != nil {
			a.close()
			return nil, err
		}
		users, posts, auditor = pgUsers, pgPosts, pgAudit
		log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	} else {
		users, posts = identity.NewMemoryStore(pwCfg), post.NewMemoryStore()
		log.Info("db.disabled.inmemory_store")
	}

	rev, err := a.newRevocationStore()
	if err != nil {
		a.close()
		return nil, err
	}
	a.revocation = rev

	dummy, err := pwCfg.DummyHash()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("password dummy hash: %w", err)
	}

	mgr, err := session.NewManager(sessCfg, rev, users, pwCfg,
		session.WithLogger(log),
		session.WithRecorder(m),
		session.WithDummyHash(dummy),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	authCfg := authapi.LoadConfigFromEnv()
	authHandler, err := authapi.NewHandler(log, authCfg, users, mgr, authapi.WithAuditor(auditor))
	if err != nil {
		a.close()
		return nil, err
	}
	postHandler, err := postapi.NewHandler(log, post.NewService(posts, time.Now), mgr, authCfg.MaxBodyBytes)
	if err != nil {
		a.close()
		return nil, err
	}

	mux := http.NewServeMux()
	registerHTTP(mux, log, cfg, a.dbPool, m, authHandler, postHandler)
	a.handler = WithRequestLogging(WithRecover(WithSecurityHeaders(mux), log), log, m)

	return a, nil
}

func openDB(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, error) {
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if !cfg.DBMigrate {
		return pool, nil
	}
	if err := migrations.EnsureSchema(ctx, pool, cfg.DBSchema); err != nil {
		pool.Close()
		return nil, err
	}
	if err := migrations.Up(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (a *App) newRevocationStore() (revocation.Store, error) {
	switch a.cfg.revocationBackend() {
	case BackendPostgres:
		if a.dbPool == nil {
			return nil, errors.New("revocation: postgres backend requires a database")
		}
		a.log.Info("revocation.backend", "backend", BackendPostgres)
		return revocation.NewPostgresStore(a.dbPool, revocation.WithSchema(a.cfg.DBSchema))
	default:
		a.log.Info("revocation.backend", "backend", BackendMemory)
		return revocation.NewMemoryStore()
	}
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and the revocation janitor, and blocks until
// context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	jobCtx, stopJobs := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runJanitor(jobCtx, a.log, a.revocation, a.metrics, a.cfg.JanitorInterval)
	}()
	defer func() {
		stopJobs()
		wg.Wait()
	}()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbPool != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// close releases stores and the pool. The pool is owned here; store Close methods do not touch it.
func (a *App) close() {
	if a.revocation != nil {
		if err := a.revocation.Close(); err != nil {
			a.log.Error("revocation.close.fail", "err", err)
		}
		a.revocation = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
