// Package tenant determines which tenant a request belongs to and carries that
// decision implicitly through every downstream call.
//
// # Identity
//
// Identity is the immutable triple {ID, Slug, SchemaName}. The schema name is
// derived from the slug ("acme-corp" lives in schema "tenant_acme_corp").
//
// # Ambient binding
//
// Exactly one identity is bound per request with Bind and released exactly once
// with Binding.Release. Current never falls back to a default: a scoped
// operation without a binding fails with ErrNoTenantBound.
//
//	ctx, binding, err := tenant.Bind(ctx, identity)
//	if err != nil {
//		return err
//	}
//	defer binding.Release()
//
// Scope wraps the same pattern around a function.
//
// # Resolution
//
// Resolver tries, in order and stopping at the first credential found:
//
//  1. Bearer token, verified by a TokenVerifier. A token that fails verification
//     is treated as absent; its claims are never used.
//  2. API key (X-API-Key), located by an APIKeyFinder scanning active tenants.
//  3. Explicit tenant header (X-Tenant-Id).
//
// Every candidate is validated against the directory (through a DirectoryCache)
// for existence and active status. ErrMissingTenant, ErrUnknownTenant and
// ErrInactiveTenant are reported identically by the default middleware error
// handler so tenants cannot be enumerated.
//
//	resolver := tenant.NewResolver(directory,
//		tenant.WithTokenVerifier(jwtService),
//		tenant.WithAPIKeyFinder(apiKeys),
//		tenant.WithDirectoryCache(tenant.NewRedisCache(rdb), 5*time.Minute),
//	)
//	router.Use(tenant.Middleware(resolver, tenant.WithSkipPaths("/healthz", "/admin/")))
//
// # Directory cache
//
// DirectoryCache is a read-through shadow of the directory with TTL-only
// invalidation. MemoryCache serves single-node setups and tests; RedisCache
// stores flat hashes under tenant:lookup:{tenant_id}. Backend failures are
// always treated as misses.
package tenant
