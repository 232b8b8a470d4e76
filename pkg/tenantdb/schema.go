package tenantdb

import "github.com/jackc/pgx/v5"

// Table is a tenant table template written against PlaceholderSchema.
type Table struct {
	Name    string
	Create  string
	Indexes []string
}

// Schema is the set of tables created in every tenant schema.
type Schema struct {
	Tables []Table
}

// BaseSchema holds the tables every tenant starts with.
var BaseSchema = Schema{
	Tables: []Table{
		{
			Name: "api_keys",
			Create: `CREATE TABLE tenant.api_keys (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_id uuid NOT NULL,
    name text NOT NULL,
    key_prefix text NOT NULL,
    key_hash bytea NOT NULL UNIQUE,
    created_at timestamptz NOT NULL DEFAULT now(),
    revoked_at timestamptz
)`,
			Indexes: []string{
				`CREATE INDEX api_keys_tenant_id_idx ON tenant.api_keys (tenant_id)`,
				`CREATE INDEX api_keys_key_prefix_idx ON tenant.api_keys (key_prefix)`,
			},
		},
		{
			Name: "settings",
			Create: `CREATE TABLE tenant.settings (
    tenant_id uuid NOT NULL,
    key text NOT NULL,
    value jsonb NOT NULL DEFAULT '{}'::jsonb,
    updated_at timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (tenant_id, key)
)`,
		},
	},
}

// ProvisionStatements renders the statements that create schemaName with every
// table and its row security policy, in execution order.
func (s Schema) ProvisionStatements(schemaName string) []string {
	tr := NewTranslator(schemaName)
	stmts := []string{`CREATE SCHEMA ` + pgx.Identifier{schemaName}.Sanitize()}
	for _, t := range s.Tables {
		stmts = append(stmts, tr.Rewrite(t.Create))
		for _, idx := range t.Indexes {
			stmts = append(stmts, tr.Rewrite(idx))
		}
		stmts = append(stmts, RowSecurityStatements(schemaName, t.Name)...)
	}
	return stmts
}

// TableNames lists the tables in creation order.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}
