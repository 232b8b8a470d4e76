// Package pg bootstraps the PostgreSQL pool shared by every tenant.
//
// Config is populated from the environment through pkg/config. Connect opens a
// *pgxpool.Pool and retries while the database is still starting. Migrate runs
// embedded goose migrations for the shared directory schema; per-tenant schemas
// are created by the provisioning service, not by migrations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, tenantdb.Migrations, tenantdb.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
//
// The Is*Error helpers classify *pgconn.PgError values by SQLSTATE.
package pg
