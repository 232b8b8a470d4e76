package platform

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/jwt"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/metrics"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantcache"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/svc/api"
	"github.com/dmitrymomot/tenantkit/svc/provisioning"
)

// Platform holds the shared resources and every component built on them.
// The pool and the Redis client are created once here and injected everywhere.
type Platform struct {
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Tenancy

	Pool  *pgxpool.Pool
	Redis goredis.UniversalClient // nil with the memory cache backend

	Factory        *tenantdb.Factory
	Directory      *tenantdb.Directory
	APIKeys        *tenantdb.APIKeyStore
	Settings       *tenantdb.SettingsStore
	DirectoryCache tenant.DirectoryCache
	ScopedCache    *tenantcache.Cache // nil with the memory cache backend
	Tokens         *jwt.Service
	Resolver       *tenant.Resolver
	Provisioning   *provisioning.Service

	closers []func()
}

// NewLogger builds the process logger with tenant ids on every record.
func NewLogger(cfg Config) *slog.Logger {
	return logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(tenant.LoggerExtractor()),
	)
}

// New connects to PostgreSQL and, unless the memory backend is configured,
// Redis, then assembles the platform.
func New(ctx context.Context, cfg Config, log *slog.Logger, reg prometheus.Registerer) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return nil, errors.Join(ErrStartup, err)
	}

	var rdb goredis.UniversalClient
	if cfg.UsesRedis() {
		rdb, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, errors.Join(ErrStartup, err)
		}
	}

	p, err := Assemble(cfg, pool, rdb, log, reg)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		pool.Close()
		return nil, err
	}
	p.closers = append(p.closers, pool.Close)
	if rdb != nil {
		p.closers = append(p.closers, func() { _ = rdb.Close() })
	}
	return p, nil
}

// Assemble wires the components over already open connections. rdb may be nil
// only with the memory cache backend. Closing the connections stays with the caller.
func Assemble(cfg Config, pool *pgxpool.Pool, rdb goredis.UniversalClient, log *slog.Logger, reg prometheus.Registerer) (*Platform, error) {
	if cfg.UsesRedis() && rdb == nil {
		return nil, errors.Join(ErrStartup, errors.New("redis cache backend without a redis client"))
	}
	if log == nil {
		log = logger.Discard()
	}

	var m *metrics.Tenancy
	if reg != nil {
		m = metrics.NewTenancy(reg)
	}

	tokens, err := jwt.NewFromConfig(cfg.JWT)
	if err != nil {
		return nil, errors.Join(ErrStartup, err)
	}

	p := &Platform{
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		Pool:    pool,
		Redis:   rdb,
		Tokens:  tokens,
	}

	p.Factory = tenantdb.NewFactory(tenantdb.NewPool(pool),
		tenantdb.WithAcquireTimeout(cfg.PG.AcquireTimeout),
		tenantdb.WithLogger(log),
		tenantdb.WithMetrics(m),
	)
	p.Directory = tenantdb.NewDirectory(p.Factory)
	p.APIKeys = tenantdb.NewAPIKeyStore(p.Factory, p.Directory, log)
	p.Settings = tenantdb.NewSettingsStore(p.Factory)

	if rdb != nil {
		p.DirectoryCache = tenant.NewRedisCache(rdb,
			tenant.WithRedisCacheLogger(log),
			tenant.WithRedisCacheMetrics(m),
		)
		p.ScopedCache = tenantcache.New(rdb,
			tenantcache.WithLogger(log),
			tenantcache.WithMetrics(m),
		)
	} else {
		mem := tenant.NewMemoryCacheWithSize(cfg.Tenant.CacheSize)
		p.DirectoryCache = mem
		p.closers = append(p.closers, func() { _ = mem.Close() })
	}

	p.Resolver = tenant.NewResolver(p.Directory,
		tenant.WithTokenVerifier(tokens),
		tenant.WithAPIKeyFinder(p.APIKeys),
		tenant.WithDirectoryCache(p.DirectoryCache, cfg.Tenant.CacheTTL),
		tenant.WithTenantHeader(cfg.Tenant.TenantHeader),
		tenant.WithAPIKeyHeader(cfg.Tenant.APIKeyHeader),
		tenant.WithResolverLogger(log),
		tenant.WithResolverMetrics(m),
	)

	p.Provisioning = provisioning.NewService(p.Factory, p.Directory, p.APIKeys,
		provisioning.WithDirectoryCache(p.DirectoryCache, cfg.Tenant.CacheTTL),
		provisioning.WithScopedCache(p.ScopedCache),
		provisioning.WithLogger(log),
		provisioning.WithMetrics(m),
	)

	return p, nil
}

// Middleware returns the tenant resolution middleware configured from Config.Tenant.
// Failures are written in the tenantd JSON envelope.
func (p *Platform) Middleware() func(http.Handler) http.Handler {
	return tenant.Middleware(p.Resolver,
		tenant.WithSkipPaths(p.Config.Tenant.SkipPaths...),
		tenant.WithLogger(p.Logger),
		tenant.WithErrorHandler(api.TenantErrorHandler(p.Logger)),
	)
}

// Checks returns the readiness checks for the shared connections.
func (p *Platform) Checks() []httpserver.Check {
	checks := []httpserver.Check{{Name: "postgres", Check: pg.Healthcheck(p.Pool)}}
	if p.Redis != nil {
		checks = append(checks, httpserver.Check{Name: "redis", Check: redis.Healthcheck(p.Redis)})
	}
	return checks
}

// Close releases everything New opened, in reverse order.
func (p *Platform) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}
