// Package app wires the ticketd runtime: config, logging, the middleware chain,
// routes, metrics, the optional audit database, and the server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ticketd/cmd/identity"
	"ticketd/cmd/internal/audit"
	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/realtime"
	"ticketd/cmd/internal/ticket"
	"ticketd/cmd/internal/web"
	"ticketd/cmd/security/password"
)

// App is the ticketd server runtime.
type App struct {
	cfg Config
	log Logger

	store     *ticket.Store
	hub       *realtime.Hub
	directory *identity.Directory
	metrics   *Metrics

	dbPool    *pgxpool.Pool
	dbEnabled bool

	handler http.Handler
}

// New constructs a fully wired App. ctx bounds the startup database work only.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(nil, cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	dir, err := newDirectory(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		hub:       realtime.NewHub(log),
		directory: dir,
	}
	a.store = ticket.NewStore(ticket.WithPublisher(a.hub))
	a.metrics = NewMetrics(a.store, a.hub)

	recorder, failures, err := a.openAudit(ctx)
	if err != nil {
		return nil, err
	}

	resolver := auth.NewResolver(log, cfg.Cookie, auth.WithObserver(a.metrics.ObserveResolution))

	h, err := web.NewHandler(log, a.store, dir, resolver.Cookie(), cfg.Web, web.WithAuditRecorder(recorder), web.WithFailureLog(failures))
	if err != nil {
		a.Close()
		return nil, err
	}

	feed := realtime.NewWSGateway(log, a.hub, cfg.WS)
	a.handler = a.buildRouter(h, resolver, feed)
	return a, nil
}

func newDirectory(cfg Config) (*identity.Directory, error) {
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	dir, err := identity.NewDirectory(hasher)
	if err != nil {
		return nil, err
	}
	if cfg.Demo.Enabled {
		if _, err := dir.Register(cfg.Demo.Username, cfg.Demo.Password, cfg.Demo.UserID); err != nil {
			return nil, fmt.Errorf("seed demo account: %w", err)
		}
	}
	return dir, nil
}

// openAudit picks the audit sinks: the log always, plus Postgres when configured
// or a bounded in-memory trail otherwise. The second sink also backs login throttling.
func (a *App) openAudit(ctx context.Context) (audit.Recorder, web.FailureLog, error) {
	logRec := audit.NewLogRecorder(a.log)
	if a.cfg.DatabaseURL == "" {
		mem := audit.NewMemoryRecorder(audit.DefaultMemoryCapacity)
		a.log.Info("db.disabled.audit_memory")
		return audit.Tee(logRec, mem), mem, nil
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}

	pg, err := audit.NewPostgresRecorder(pool, a.cfg.DBSchema)
	if err == nil {
		err = pg.EnsureSchema(ctx)
	}
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	a.dbPool = pool
	a.dbEnabled = true
	a.log.Info("db.enabled.audit_postgres", "schema", a.cfg.DBSchema)
	return audit.Tee(logRec, pg), pg, nil
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Store returns the ticket store.
func (a *App) Store() *ticket.Store { return a.store }

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbEnabled,
		"metrics", a.cfg.MetricsEnabled,
		"accounts", a.directory.Len(),
	)

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
