package tenantdb

import (
	"context"
	"fmt"
)

// resetSQL is DISCARD ALL without DEALLOCATE ALL, which would invalidate the
// driver's prepared statement cache. DISCARD ALL itself cannot run in the
// implicit transaction of a multi-statement query.
const resetSQL = `CLOSE ALL; SET SESSION AUTHORIZATION DEFAULT; RESET ALL; UNLISTEN *; SELECT pg_advisory_unlock_all(); DISCARD PLANS; DISCARD TEMP; DISCARD SEQUENCES`

// blankTenantSQL clears the row security variable. RESET ALL only restores it
// to the role default, which is not guaranteed to be empty.
const blankTenantSQL = `SELECT set_config('` + TenantSetting + `', '', false)`

// PoolGuard wipes session state left by the previous holder of a connection.
type PoolGuard struct{}

// NewPoolGuard creates a guard.
func NewPoolGuard() *PoolGuard {
	return &PoolGuard{}
}

// Reset runs unconditionally on every checkout, before any scope is applied.
func (g *PoolGuard) Reset(ctx context.Context, conn Conn) error {
	if _, err := conn.Exec(ctx, resetSQL); err != nil {
		return fmt.Errorf("reset session state: %w", err)
	}
	if _, err := conn.Exec(ctx, blankTenantSQL); err != nil {
		return fmt.Errorf("clear tenant setting: %w", err)
	}
	return nil
}
