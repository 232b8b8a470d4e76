package tenantdb

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TenantSetting is the session variable row security policies compare against.
const TenantSetting = "app.current_tenant_id"

// PolicyName is the name of the isolation policy on every protected table.
const PolicyName = "tenant_isolation"

// sessionTenant evaluates to NULL when the variable is unset or blank,
// so an unscoped session matches no rows.
const sessionTenant = `NULLIF(current_setting('` + TenantSetting + `', true), '')::uuid`

// RowSecurityStatements renders the DDL that binds table to the session tenant.
// The table must have a tenant_id uuid column. FORCE makes the policy apply to
// the table owner too; only superusers and BYPASSRLS roles escape it.
func RowSecurityStatements(schema, table string) []string {
	qualified := pgx.Identifier{schema, table}.Sanitize()
	policy := pgx.Identifier{PolicyName}.Sanitize()
	return []string{
		fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, qualified),
		fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY`, qualified),
		fmt.Sprintf(`DROP POLICY IF EXISTS %s ON %s`, policy, qualified),
		fmt.Sprintf(`CREATE POLICY %s ON %s FOR ALL USING (tenant_id = %s) WITH CHECK (tenant_id = %s)`,
			policy, qualified, sessionTenant, sessionTenant),
	}
}
