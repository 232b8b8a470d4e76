package tenantcache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/metrics"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// KeyPrefix starts every namespaced key: t:{tenant_id}:{key}.
const KeyPrefix = "t:"

// MarkerKey is the logical key written by Prime.
const MarkerKey = "__namespace"

const (
	component      = "scoped_cache"
	scanBatchSize  = 100
	messageBufSize = 100
)

// Cache is a tenant-namespaced view of the shared Redis client.
// Every key and channel is prefixed with the ambient tenant id; there is no unscoped access.
type Cache struct {
	client  redis.UniversalClient
	logger  *slog.Logger
	metrics *metrics.Tenancy
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report degraded operations.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records degraded operations.
func WithMetrics(m *metrics.Tenancy) Option {
	return func(c *Cache) { c.metrics = m }
}

// New wraps the shared client.
func New(client redis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// namespace returns "t:{tenant_id}:" for the ambient tenant.
func namespace(ctx context.Context) (string, error) {
	id, err := tenant.Current(ctx)
	if err != nil {
		return "", ErrNoTenantBound
	}
	return KeyPrefix + id.ID.String() + ":", nil
}

func (c *Cache) key(ctx context.Context, key string) (string, error) {
	ns, err := namespace(ctx)
	if err != nil {
		return "", err
	}
	return ns + key, nil
}

// Get returns the value and whether it was found. Backend failures are misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return "", false, err
	}
	val, err := c.client.Get(ctx, k).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.degraded(ctx, "get", err)
		}
		return "", false, nil
	}
	return val, true, nil
}

// Set stores value with an optional ttl; zero means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, k, value, ttl).Err(); err != nil {
		c.degraded(ctx, "set", err)
	}
	return nil
}

// Delete removes the keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full, err := c.keys(ctx, keys)
	if err != nil {
		return err
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		c.degraded(ctx, "delete", err)
	}
	return nil
}

// Exists reports whether the key is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return false, err
	}
	n, err := c.client.Exists(ctx, k).Result()
	if err != nil {
		c.degraded(ctx, "exists", err)
		return false, nil
	}
	return n > 0, nil
}

// Expire sets a ttl on an existing key.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	if err := c.client.Expire(ctx, k, ttl).Err(); err != nil {
		c.degraded(ctx, "expire", err)
	}
	return nil
}

// TTL returns the remaining lifetime. Missing keys, keys without expiry and
// backend failures all report zero.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return 0, err
	}
	d, err := c.client.TTL(ctx, k).Result()
	if err != nil {
		c.degraded(ctx, "ttl", err)
		return 0, nil
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Keys lists logical keys in the tenant namespace matching pattern ("*" for all).
func (c *Cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	ns, err := namespace(ctx)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}

	var (
		out    []string
		cursor uint64
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, ns+pattern, scanBatchSize).Result()
		if err != nil {
			c.degraded(ctx, "keys", err)
			return nil, nil
		}
		for _, k := range batch {
			if logical, ok := strings.CutPrefix(k, ns); ok && logical != MarkerKey {
				out = append(out, logical)
			}
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// HGet reads one hash field.
func (c *Cache) HGet(ctx context.Context, key, field string) (string, bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return "", false, err
	}
	val, err := c.client.HGet(ctx, k, field).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.degraded(ctx, "hget", err)
		}
		return "", false, nil
	}
	return val, true, nil
}

// HSet writes hash fields given as field, value pairs or a map.
func (c *Cache) HSet(ctx context.Context, key string, values ...any) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, k, values...).Err(); err != nil {
		c.degraded(ctx, "hset", err)
	}
	return nil
}

// HGetAll reads the whole hash. Missing keys and backend failures return an empty map.
func (c *Cache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return nil, err
	}
	vals, err := c.client.HGetAll(ctx, k).Result()
	if err != nil {
		c.degraded(ctx, "hgetall", err)
		return map[string]string{}, nil
	}
	return vals, nil
}

// HDel removes hash fields.
func (c *Cache) HDel(ctx context.Context, key string, fields ...string) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	if err := c.client.HDel(ctx, k, fields...).Err(); err != nil {
		c.degraded(ctx, "hdel", err)
	}
	return nil
}

// Incr increments a counter and returns the new value. On backend failure it returns 0.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		c.degraded(ctx, "incr", err)
		return 0, nil
	}
	return n, nil
}

// Publish sends message on the tenant channel.
func (c *Cache) Publish(ctx context.Context, channel string, message any) error {
	ch, err := c.key(ctx, channel)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, ch, message).Err(); err != nil {
		c.degraded(ctx, "publish", err)
	}
	return nil
}

// Prime writes the namespace marker for the ambient tenant.
func (c *Cache) Prime(ctx context.Context) error {
	id, err := tenant.Current(ctx)
	if err != nil {
		return ErrNoTenantBound
	}
	return c.Set(ctx, MarkerKey, id.Slug, 0)
}

func (c *Cache) keys(ctx context.Context, keys []string) ([]string, error) {
	ns, err := namespace(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = ns + k
	}
	return out, nil
}

func (c *Cache) degraded(ctx context.Context, op string, err error) {
	c.metrics.Degraded(component, op)
	c.logger.WarnContext(ctx, "scoped cache unavailable",
		logger.Component(component),
		slog.String("op", op),
		logger.Error(err),
	)
}
