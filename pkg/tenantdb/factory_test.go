package tenantdb_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/metrics"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

func bound(t *testing.T, slug string) (context.Context, tenant.Identity) {
	t.Helper()
	id, err := tenant.NewIdentity(uuid.New(), slug)
	require.NoError(t, err)
	ctx, b, err := tenant.Bind(context.Background(), id)
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return ctx, id
}

func TestFactory_Open(t *testing.T) {
	t.Parallel()

	t.Run("fails without bound tenant", func(t *testing.T) {
		t.Parallel()

		pool := &fakePool{conn: &fakeConn{}}
		f := tenantdb.NewFactory(pool)

		_, err := f.Open(context.Background())
		assert.ErrorIs(t, err, tenant.ErrNoTenantBound)
		assert.Equal(t, 0, pool.acquired)
	})

	t.Run("guard runs before scope", func(t *testing.T) {
		t.Parallel()

		ctx, acme := bound(t, "acme")
		conn := &fakeConn{}
		f := tenantdb.NewFactory(&fakePool{conn: conn})

		s, err := f.Open(ctx)
		require.NoError(t, err)
		defer s.Close()

		stmts := conn.statements()
		require.Len(t, stmts, 3)
		assert.Contains(t, stmts[0], "RESET ALL")
		assert.Contains(t, stmts[0], "DISCARD TEMP")
		assert.Contains(t, stmts[0], "pg_advisory_unlock_all")
		assert.NotContains(t, stmts[0], "DISCARD ALL")
		assert.Contains(t, stmts[1], "set_config('app.current_tenant_id', '', false)")
		assert.Contains(t, stmts[2], "set_config('search_path', $1, false)")

		scope := conn.lastCall()
		assert.Equal(t, []any{`"tenant_acme"`, acme.ID.String()}, scope.args)
		assert.Equal(t, acme, s.Identity())
		assert.True(t, s.Scoped())
	})

	t.Run("every checkout is reset", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{}
		f := tenantdb.NewFactory(&fakePool{conn: conn})

		ctxA, _ := bound(t, "acme")
		ctxB, globex := bound(t, "globex")

		s, err := f.Open(ctxA)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		s, err = f.Open(ctxB)
		require.NoError(t, err)
		require.NoError(t, s.Close())

		stmts := conn.statements()
		require.Len(t, stmts, 6)
		assert.Contains(t, stmts[3], "RESET ALL")
		assert.Equal(t, []any{`"tenant_globex"`, globex.ID.String()}, conn.lastCall().args)
		assert.Equal(t, 2, conn.released)
	})

	t.Run("unscoped session", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{}
		f := tenantdb.NewFactory(&fakePool{conn: conn})

		s, err := f.OpenUnscoped(context.Background())
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, []any{"public", ""}, conn.lastCall().args)
		assert.False(t, s.Scoped())
		assert.True(t, s.Identity().IsZero())
	})
}

func TestFactory_Failures(t *testing.T) {
	t.Parallel()

	t.Run("pool exhausted", func(t *testing.T) {
		t.Parallel()

		ctx, _ := bound(t, "acme")
		f := tenantdb.NewFactory(&fakePool{err: assert.AnError})

		_, err := f.Open(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrPoolExhausted)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("acquire timeout", func(t *testing.T) {
		t.Parallel()

		ctx, _ := bound(t, "acme")
		f := tenantdb.NewFactory(&fakePool{block: true}, tenantdb.WithAcquireTimeout(20*time.Millisecond))

		_, err := f.Open(ctx)
		assert.ErrorIs(t, err, tenantdb.ErrPoolExhausted)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	tests := []struct {
		name  string
		conn  *fakeConn
		stage string
	}{
		{
			name:  "guard failure",
			conn:  &fakeConn{failOn: "RESET ALL"},
			stage: "guard",
		},
		{
			name:  "tenant variable reset failure",
			conn:  &fakeConn{failOn: "set_config('app.current_tenant_id', ''"},
			stage: "guard",
		},
		{
			name:  "scope statement failure",
			conn:  &fakeConn{failOn: "set_config('search_path'"},
			stage: "scope",
		},
		{
			name: "scope not applied",
			conn: &fakeConn{echo: func(args []any) []any {
				return []any{"public", args[1]}
			}},
			stage: "verify",
		},
		{
			name: "tenant variable not applied",
			conn: &fakeConn{echo: func(args []any) []any {
				return []any{args[0], ""}
			}},
			stage: "verify",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, _ := bound(t, "acme")
			m := metrics.NewTenancy(prometheus.NewRegistry())
			f := tenantdb.NewFactory(&fakePool{conn: tt.conn}, tenantdb.WithMetrics(m))

			s, err := f.Open(ctx)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tenantdb.ErrConnectionSetupFailed)
			assert.Equal(t, 1, tt.conn.destroyed)
			assert.Equal(t, 0, tt.conn.released)
			assert.InDelta(t, 1, testutil.ToFloat64(m.SessionSetupFailures.WithLabelValues(tt.stage)), 0)
		})
	}
}

func TestFactory_Do(t *testing.T) {
	t.Parallel()

	t.Run("closes on success", func(t *testing.T) {
		t.Parallel()

		ctx, acme := bound(t, "acme")
		conn := &fakeConn{}
		f := tenantdb.NewFactory(&fakePool{conn: conn})

		err := f.Do(ctx, func(s *tenantdb.Session) error {
			assert.Equal(t, acme, s.Identity())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, conn.released)
	})

	t.Run("closes on error", func(t *testing.T) {
		t.Parallel()

		ctx, _ := bound(t, "acme")
		conn := &fakeConn{}
		f := tenantdb.NewFactory(&fakePool{conn: conn})

		err := f.Do(ctx, func(*tenantdb.Session) error { return assert.AnError })
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, conn.released)
	})

	t.Run("unscoped", func(t *testing.T) {
		t.Parallel()

		conn := &fakeConn{}
		f := tenantdb.NewFactory(&fakePool{conn: conn})

		err := f.DoUnscoped(context.Background(), func(s *tenantdb.Session) error {
			assert.False(t, s.Scoped())
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, conn.released)
	})
}

func TestSession(t *testing.T) {
	t.Parallel()

	open := func(t *testing.T) (*tenantdb.Session, *fakeConn) {
		t.Helper()
		ctx, _ := bound(t, "acme-corp")
		conn := &fakeConn{}
		s, err := tenantdb.NewFactory(&fakePool{conn: conn}).Open(ctx)
		require.NoError(t, err)
		return s, conn
	}

	t.Run("rewrites placeholder schema", func(t *testing.T) {
		t.Parallel()

		s, conn := open(t)
		defer s.Close()

		_, err := s.Exec(context.Background(), `DELETE FROM tenant.settings WHERE key = $1`, "theme")
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "tenant_acme_corp".settings WHERE key = $1`, conn.lastCall().sql)
	})

	t.Run("builder statements are rewritten", func(t *testing.T) {
		t.Parallel()

		s, conn := open(t)
		defer s.Close()

		_, err := s.ExecBuilder(context.Background(), s.Builder().
			Update("tenant.settings").
			Set("value", `"dark"`).
			Where("key = ?", "theme"))
		require.NoError(t, err)

		last := conn.lastCall()
		assert.Equal(t, `UPDATE "tenant_acme_corp".settings SET value = $1 WHERE key = $2`, last.sql)
		assert.Equal(t, []any{`"dark"`, "theme"}, last.args)
	})

	t.Run("close is idempotent and blocks further use", func(t *testing.T) {
		t.Parallel()

		s, conn := open(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		assert.Equal(t, 1, conn.released)

		_, err := s.Exec(context.Background(), "SELECT 1")
		assert.ErrorIs(t, err, tenantdb.ErrSessionClosed)
		_, err = s.Query(context.Background(), "SELECT 1")
		assert.ErrorIs(t, err, tenantdb.ErrSessionClosed)
		var x string
		assert.ErrorIs(t, s.QueryRow(context.Background(), "SELECT 1").Scan(&x), tenantdb.ErrSessionClosed)
		_, err = s.Begin(context.Background())
		assert.ErrorIs(t, err, tenantdb.ErrSessionClosed)
	})

	t.Run("transaction commits and rewrites", func(t *testing.T) {
		t.Parallel()

		s, conn := open(t)
		defer s.Close()

		err := s.InTx(context.Background(), func(tx *tenantdb.Tx) error {
			_, err := tx.Exec(context.Background(), `INSERT INTO tenant.settings (tenant_id, key) VALUES ($1, $2)`, s.Identity().ID, "k")
			return err
		})
		require.NoError(t, err)
		assert.True(t, conn.tx.committed)
		assert.True(t, strings.HasPrefix(conn.lastCall().sql, `INSERT INTO "tenant_acme_corp".settings`))
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		t.Parallel()

		s, conn := open(t)
		defer s.Close()

		err := s.InTx(context.Background(), func(*tenantdb.Tx) error { return assert.AnError })
		assert.ErrorIs(t, err, assert.AnError)
		assert.True(t, conn.tx.rolledBack)
		assert.False(t, conn.tx.committed)
	})

	t.Run("transaction rolls back on panic", func(t *testing.T) {
		t.Parallel()

		s, conn := open(t)
		defer s.Close()

		assert.Panics(t, func() {
			_ = s.InTx(context.Background(), func(*tenantdb.Tx) error { panic("boom") })
		})
		assert.True(t, conn.tx.rolledBack)
	})
}
