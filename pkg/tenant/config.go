package tenant

import "time"

// Config holds resolver settings loaded from the environment.
type Config struct {
	CacheTTL     time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`                                       // CacheTTL is the directory cache entry lifetime.
	CacheSize    int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`                                    // CacheSize caps the in-memory directory cache.
	SkipPaths    []string      `env:"TENANT_SKIP_PATHS" envDefault:"/healthz,/readyz,/metrics,/docs,/admin/"` // SkipPaths bypass tenant resolution.
	TenantHeader string        `env:"TENANT_HEADER" envDefault:"X-Tenant-Id"`                                 // TenantHeader carries an explicit tenant id.
	APIKeyHeader string        `env:"TENANT_API_KEY_HEADER" envDefault:"X-API-Key"`                           // APIKeyHeader carries a tenant API key.
}
