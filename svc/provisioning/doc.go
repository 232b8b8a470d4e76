// Package provisioning creates tenants.
//
// Provision validates the slug, then inside a single transaction on an unscoped
// session takes an advisory lock on the slug, checks the directory, creates the
// tenant schema with its tables and row security policies, and finally inserts
// the directory entry. Postgres DDL is transactional, so a failure at any step
// leaves neither a schema nor a directory row behind. Concurrent attempts for
// the same slug serialize on the lock; the loser gets ErrSlugTaken.
//
//	svc := provisioning.NewService(factory, directory, apiKeys,
//		provisioning.WithDirectoryCache(cache, cfg.CacheTTL),
//		provisioning.WithScopedCache(scoped),
//		provisioning.WithLogger(log),
//	)
//	t, err := svc.Provision(ctx, "acme", "Acme Corp")
//
// Deactivate and Activate only touch the directory. Resolvers keep serving a
// cached identity until its TTL expires.
package provisioning
