// Package tenantdb gives every tenant-scoped database call a connection that
// can only see the bound tenant's data.
//
// # Sessions
//
// Factory.Open reads the ambient tenant from the context and returns a Session.
// Each checkout goes through three steps, in order:
//
//  1. PoolGuard.Reset wipes state left by the previous holder (settings,
//     cursors, temp tables, advisory locks, session authorization).
//  2. One statement sets search_path to the tenant schema and
//     app.current_tenant_id to the tenant id.
//  3. Both values are read back and compared.
//
// Any failure destroys the physical connection and returns
// ErrConnectionSetupFailed. There is no default schema: Open without a bound
// tenant fails with tenant.ErrNoTenantBound. OpenUnscoped is the explicit
// escape hatch used by provisioning and the directory; it pins search_path to
// public and leaves the tenant variable blank, which row security treats as
// "no rows".
//
//	err := factory.Do(ctx, func(s *tenantdb.Session) error {
//		_, err := s.ExecBuilder(ctx, s.Builder().
//			Insert("tenant.settings").
//			Columns("tenant_id", "key", "value").
//			Values(s.Identity().ID, "theme", `"dark"`))
//		return err
//	})
//
// # Placeholder schema
//
// Statements are written against the schema "tenant". Sessions and their
// transactions rewrite tenant.x and "tenant".x to the bound schema before the
// statement reaches the server. String literals are left alone.
//
// # Row security
//
// RowSecurityStatements renders ENABLE and FORCE ROW LEVEL SECURITY plus a
// tenant_isolation policy comparing tenant_id with app.current_tenant_id.
// The application role must be neither superuser nor BYPASSRLS, otherwise the
// policy is silently skipped.
//
// # Directory
//
// Directory reads and writes public.tenants, created by the goose migrations in
// Migrations. It implements tenant.Directory. APIKeyStore implements
// tenant.APIKeyFinder over the per-tenant api_keys tables.
package tenantdb
