// Package tenantcache namespaces the shared Redis client by the ambient tenant.
//
// Every key and pub/sub channel is rewritten to t:{tenant_id}:{key} using the
// identity bound on the context by tenant.Bind. Calling any method without a
// bound tenant returns ErrNoTenantBound; no method accepts a raw key.
//
// Redis failures never reach the caller. Reads degrade to a miss and writes to
// a no-op; each failure is logged and counted under the scoped_cache component.
//
//	c := tenantcache.New(client, tenantcache.WithLogger(log))
//	_ = c.Set(ctx, "plan", "pro", time.Hour)
//	plan, ok, err := c.Get(ctx, "plan")
package tenantcache
