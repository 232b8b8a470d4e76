package tenantdb_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

func TestRowSecurityStatements(t *testing.T) {
	t.Parallel()

	stmts := tenantdb.RowSecurityStatements("tenant_acme", "settings")
	require.Len(t, stmts, 4)

	assert.Equal(t, `ALTER TABLE "tenant_acme"."settings" ENABLE ROW LEVEL SECURITY`, stmts[0])
	assert.Equal(t, `ALTER TABLE "tenant_acme"."settings" FORCE ROW LEVEL SECURITY`, stmts[1])
	assert.Equal(t, `DROP POLICY IF EXISTS "tenant_isolation" ON "tenant_acme"."settings"`, stmts[2])

	policy := stmts[3]
	assert.True(t, strings.HasPrefix(policy, `CREATE POLICY "tenant_isolation" ON "tenant_acme"."settings" FOR ALL`))
	assert.Contains(t, policy, `USING (tenant_id = NULLIF(current_setting('app.current_tenant_id', true), '')::uuid)`)
	assert.Contains(t, policy, `WITH CHECK (tenant_id = NULLIF(current_setting('app.current_tenant_id', true), '')::uuid)`)
}

func TestSchema_ProvisionStatements(t *testing.T) {
	t.Parallel()

	stmts := tenantdb.BaseSchema.ProvisionStatements("tenant_acme")
	require.NotEmpty(t, stmts)

	assert.Equal(t, `CREATE SCHEMA "tenant_acme"`, stmts[0])

	for _, s := range stmts {
		assert.NotContains(t, s, " tenant.", "placeholder schema left in %q", s)
	}

	joined := strings.Join(stmts, "\n")
	for _, table := range tenantdb.BaseSchema.TableNames() {
		assert.Contains(t, joined, `CREATE TABLE "tenant_acme".`+table)
		assert.Contains(t, joined, `ALTER TABLE "tenant_acme"."`+table+`" FORCE ROW LEVEL SECURITY`)
	}

	// Policies come after their table.
	create := indexOf(stmts, `CREATE TABLE "tenant_acme".api_keys`)
	force := indexOf(stmts, `ALTER TABLE "tenant_acme"."api_keys" FORCE`)
	require.GreaterOrEqual(t, create, 0)
	assert.Greater(t, force, create)
}

func TestBaseSchema_TenantColumn(t *testing.T) {
	t.Parallel()

	for _, table := range tenantdb.BaseSchema.Tables {
		assert.Contains(t, table.Create, "tenant_id uuid NOT NULL", table.Name)
	}
}

func indexOf(stmts []string, prefix string) int {
	for i, s := range stmts {
		if strings.HasPrefix(s, prefix) {
			return i
		}
	}
	return -1
}
