package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/metrics"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// UnscopedSearchPath is the search_path of sessions not bound to a tenant.
const UnscopedSearchPath = "public"

// scopeSQL applies both retargeting variables in one statement and echoes them back.
const scopeSQL = `SELECT set_config('search_path', $1, false), set_config('` + TenantSetting + `', $2, false)`

// Setup stages, used as metric labels.
const (
	stageAcquire = "acquire"
	stageGuard   = "guard"
	stageScope   = "scope"
	stageVerify  = "verify"
)

// Factory hands out sessions configured for the ambient tenant.
// Every checkout is reset by the pool guard before it is scoped.
type Factory struct {
	pool           Pool
	guard          *PoolGuard
	acquireTimeout time.Duration
	logger         *slog.Logger
	metrics        *metrics.Tenancy
}

// Option configures a Factory.
type Option func(*Factory)

// WithAcquireTimeout bounds how long Open waits for a free connection.
func WithAcquireTimeout(d time.Duration) Option {
	return func(f *Factory) { f.acquireTimeout = d }
}

// WithLogger sets the factory logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics records opened sessions and setup failures.
func WithMetrics(m *metrics.Tenancy) Option {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory creates a session factory over the shared pool.
func NewFactory(pool Pool, opts ...Option) *Factory {
	f := &Factory{
		pool:   pool,
		guard:  NewPoolGuard(),
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open returns a session bound to the ambient tenant.
// It fails with tenant.ErrNoTenantBound when no tenant is bound; there is no default schema.
func (f *Factory) Open(ctx context.Context) (*Session, error) {
	id, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}
	return f.open(ctx, id, true)
}

// OpenUnscoped returns a session with search_path=public and no tenant.
// Row security hides every tenant row from it. Provisioning and the directory use it.
func (f *Factory) OpenUnscoped(ctx context.Context) (*Session, error) {
	return f.open(ctx, tenant.Identity{}, false)
}

// Do opens a session for the ambient tenant, runs fn and always closes the session.
func (f *Factory) Do(ctx context.Context, fn func(s *Session) error) error {
	s, err := f.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// DoUnscoped is Do for an unscoped session.
func (f *Factory) DoUnscoped(ctx context.Context, fn func(s *Session) error) error {
	s, err := f.OpenUnscoped(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (f *Factory) open(ctx context.Context, id tenant.Identity, scoped bool) (*Session, error) {
	conn, err := f.acquire(ctx)
	if err != nil {
		f.metrics.SetupFailed(stageAcquire)
		return nil, errors.Join(ErrPoolExhausted, err)
	}

	if err := f.guard.Reset(ctx, conn); err != nil {
		return nil, f.fail(ctx, conn, id, stageGuard, err)
	}

	searchPath, tenantValue := UnscopedSearchPath, ""
	if scoped {
		searchPath = pgx.Identifier{id.SchemaName}.Sanitize()
		tenantValue = id.ID.String()
	}

	var gotPath, gotTenant string
	if err := conn.QueryRow(ctx, scopeSQL, searchPath, tenantValue).Scan(&gotPath, &gotTenant); err != nil {
		return nil, f.fail(ctx, conn, id, stageScope, err)
	}
	if gotPath != searchPath || gotTenant != tenantValue {
		err := fmt.Errorf("session reports search_path=%q tenant=%q, want %q and %q", gotPath, gotTenant, searchPath, tenantValue)
		return nil, f.fail(ctx, conn, id, stageVerify, err)
	}

	if scoped {
		f.metrics.SessionOpened("tenant")
	} else {
		f.metrics.SessionOpened("unscoped")
	}
	return newSession(conn, id, scoped), nil
}

func (f *Factory) acquire(ctx context.Context) (Conn, error) {
	if f.acquireTimeout <= 0 {
		return f.pool.Acquire(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, f.acquireTimeout)
	defer cancel()
	return f.pool.Acquire(actx)
}

// fail destroys the connection so no half-configured session ever reaches the pool again.
func (f *Factory) fail(ctx context.Context, conn Conn, id tenant.Identity, stage string, cause error) error {
	f.metrics.SetupFailed(stage)

	pid := conn.PID()
	if err := conn.Destroy(context.WithoutCancel(ctx)); err != nil {
		cause = errors.Join(cause, err)
	}

	f.logger.ErrorContext(ctx, "session setup failed, connection destroyed",
		logger.Component("session_factory"),
		slog.String("stage", stage),
		slog.Uint64("pid", uint64(pid)),
		logger.TenantSlug(id.Slug),
		logger.Error(cause),
	)
	return errors.Join(ErrConnectionSetupFailed, cause)
}
