package platform

import (
	"fmt"

	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/jwt"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Directory cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config is the process configuration shared by tenantd and tenantctl.
type Config struct {
	Env          string `env:"APP_ENV" envDefault:"development"`        // Env selects the logger preset.
	Service      string `env:"APP_SERVICE" envDefault:"tenantd"`        // Service is attached to every log record.
	AdminToken   string `env:"ADMIN_TOKEN"`                             // AdminToken guards the /admin routes; empty disables them.
	CacheBackend string `env:"TENANT_CACHE_BACKEND" envDefault:"redis"` // CacheBackend is redis or memory. memory runs without Redis.

	PG     pg.Config
	Redis  redis.Config
	Tenant tenant.Config
	JWT    jwt.Config
	HTTP   httpserver.Config
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("%w: unknown TENANT_CACHE_BACKEND %q", ErrInvalidConfig, c.CacheBackend)
	}
	if c.Tenant.CacheTTL <= 0 {
		return fmt.Errorf("%w: TENANT_CACHE_TTL must be positive", ErrInvalidConfig)
	}
	return nil
}

// UsesRedis reports whether the process needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.CacheBackend == CacheBackendRedis
}
