package tenant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/metrics"
)

// DirectoryKeyPrefix namespaces directory entries in Redis.
const DirectoryKeyPrefix = "tenant:lookup:"

const (
	fieldTenantID   = "tenant_id"
	fieldTenantSlug = "tenant_slug"
	fieldSchemaName = "schema_name"
)

// RedisCache stores identities as flat Redis hashes under tenant:lookup:{tenant_id}.
type RedisCache struct {
	client  redis.UniversalClient
	logger  *slog.Logger
	metrics *metrics.Tenancy
}

// RedisCacheOption configures a RedisCache.
type RedisCacheOption func(*RedisCache)

// WithRedisCacheLogger sets the logger used to report degraded operations.
func WithRedisCacheLogger(l *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRedisCacheMetrics records degraded operations.
func WithRedisCacheMetrics(m *metrics.Tenancy) RedisCacheOption {
	return func(c *RedisCache) { c.metrics = m }
}

// NewRedisCache creates a directory cache backed by the shared Redis client.
func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func directoryKey(id uuid.UUID) string {
	return DirectoryKeyPrefix + id.String()
}

// Lookup reads the hash for id. Errors and malformed records are misses.
func (c *RedisCache) Lookup(ctx context.Context, id uuid.UUID) (Identity, bool) {
	vals, err := c.client.HGetAll(ctx, directoryKey(id)).Result()
	if err != nil {
		c.degraded(ctx, "lookup", err)
		return Identity{}, false
	}
	if len(vals) == 0 {
		return Identity{}, false
	}

	identity, err := NewIdentity(id, vals[fieldTenantSlug])
	if err != nil || vals[fieldTenantID] != id.String() || vals[fieldSchemaName] != identity.SchemaName {
		c.logger.WarnContext(ctx, "discarding malformed directory cache entry",
			logger.Component("directory_cache"),
			slog.String("tenant_id", id.String()),
		)
		c.Delete(ctx, id)
		return Identity{}, false
	}

	return identity, true
}

// Put writes the identity hash and its TTL atomically.
func (c *RedisCache) Put(ctx context.Context, identity Identity, ttl time.Duration) {
	if identity.IsZero() || ttl <= 0 {
		return
	}

	key := directoryKey(identity.ID)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldTenantID, identity.ID.String(),
			fieldTenantSlug, identity.Slug,
			fieldSchemaName, identity.SchemaName,
		)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		c.degraded(ctx, "put", err)
	}
}

// Delete removes the cached identity.
func (c *RedisCache) Delete(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, directoryKey(id)).Err(); err != nil {
		c.degraded(ctx, "delete", err)
	}
}

func (c *RedisCache) degraded(ctx context.Context, op string, err error) {
	c.metrics.Degraded("directory_cache", op)
	c.logger.WarnContext(ctx, "directory cache unavailable, falling back to directory",
		logger.Component("directory_cache"),
		slog.String("op", op),
		logger.Error(err),
	)
}
