//go:build integration

// Package pgtest starts a disposable PostgreSQL for integration tests and
// connects to it as a role that row security applies to.
package pgtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

const (
	image        = "postgres:16-alpine"
	database     = "tenantkit"
	superuser    = "postgres"
	superuserPwd = "postgres"
	appRole      = "tenantkit_app"
	appRolePwd   = "tenantkit_app"
)

// Options tunes the application pool.
type Options struct {
	MaxConns int32
}

// Start runs PostgreSQL, creates a NOSUPERUSER NOBYPASSRLS application role,
// applies the directory migrations and returns a pool connected as that role.
// Everything is torn down with t.Cleanup.
func Start(t *testing.T, opts Options) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     superuser,
				"POSTGRES_PASSWORD": superuserPwd,
				"POSTGRES_DB":       database,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	admin, err := pgx.Connect(ctx, dsn(superuser, superuserPwd, host, port.Port()))
	require.NoError(t, err, "connect as superuser")
	defer admin.Close(ctx)

	for _, stmt := range []string{
		fmt.Sprintf(`CREATE ROLE %s LOGIN PASSWORD '%s' NOSUPERUSER NOBYPASSRLS NOCREATEROLE`, appRole, appRolePwd),
		fmt.Sprintf(`GRANT CREATE, CONNECT ON DATABASE %s TO %s`, database, appRole),
		fmt.Sprintf(`GRANT ALL ON SCHEMA public TO %s`, appRole),
	} {
		_, err := admin.Exec(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg := pg.Config{
		ConnectionString: dsn(appRole, appRolePwd, host, port.Port()),
		MaxConns:         maxConns,
		MinConns:         1,
		RetryAttempts:    5,
		RetryInterval:    time.Second,
		MigrationsTable:  "tenantkit_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err, "connect as application role")
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, tenantdb.Migrations, tenantdb.MigrationsDir, cfg, logger.Discard()))

	return pool
}

func dsn(user, password, host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
