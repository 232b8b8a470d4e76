//go:build integration

package provisioning_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb/pgtest"
	"github.com/dmitrymomot/tenantkit/svc/provisioning"
)

func TestIntegration_Provision(t *testing.T) {
	pool := pgtest.Start(t, pgtest.Options{MaxConns: 8})
	ctx := context.Background()

	factory := tenantdb.NewFactory(tenantdb.NewPool(pool))
	directory := tenantdb.NewDirectory(factory)
	apiKeys := tenantdb.NewAPIKeyStore(factory, directory, nil)
	svc := provisioning.NewService(factory, directory, apiKeys)

	countSchemas := func(t *testing.T, name string) int {
		t.Helper()
		var n int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM information_schema.schemata WHERE schema_name = $1`, name,
		).Scan(&n))
		return n
	}

	acme, err := svc.Provision(ctx, "acme", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "tenant_acme", acme.SchemaName)

	t.Run("list has exactly one acme", func(t *testing.T) {
		entries, err := svc.List(ctx)
		require.NoError(t, err)

		var n int
		for _, e := range entries {
			if e.Slug == "acme" {
				n++
				assert.True(t, e.Active)
				assert.Equal(t, acme.TenantID, e.ID)
			}
		}
		assert.Equal(t, 1, n)
	})

	t.Run("second provision is rejected without side effects", func(t *testing.T) {
		_, err := svc.Provision(ctx, "acme", "Acme Again")
		require.ErrorIs(t, err, provisioning.ErrSlugTaken)

		entries, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, 1, countSchemas(t, "tenant_acme"))
	})

	t.Run("concurrent provisions of one slug", func(t *testing.T) {
		const n = 5
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			ok    int
			taken int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Provision(ctx, "initech", "Initech")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case assert.ErrorIs(t, err, provisioning.ErrSlugTaken):
					taken++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, taken)
		assert.Equal(t, 1, countSchemas(t, "tenant_initech"))
	})

	t.Run("api key resolves to its tenant", func(t *testing.T) {
		globex, err := svc.Provision(ctx, "globex", "Globex")
		require.NoError(t, err)

		plain, err := svc.IssueAPIKey(ctx, globex.TenantID, "ci")
		require.NoError(t, err)

		resolver := tenant.NewResolver(directory, tenant.WithAPIKeyFinder(apiKeys))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(tenant.DefaultAPIKeyHeader, plain)
		id, err := resolver.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, globex.TenantID, id.ID)

		req = httptest.NewRequest("GET", "/", nil)
		req.Header.Set(tenant.DefaultAPIKeyHeader, "tk_deadbeef_unknown")
		_, err = resolver.Resolve(req)
		assert.ErrorIs(t, err, tenant.ErrMissingTenant)
	})

	t.Run("deactivate and activate", func(t *testing.T) {
		require.NoError(t, svc.Deactivate(ctx, acme.TenantID))
		entry, err := svc.Get(ctx, acme.TenantID)
		require.NoError(t, err)
		assert.False(t, entry.Active)

		require.NoError(t, svc.Activate(ctx, acme.TenantID))
		entry, err = svc.Get(ctx, acme.TenantID)
		require.NoError(t, err)
		assert.True(t, entry.Active)
	})
}
