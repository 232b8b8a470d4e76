package pg

import "time"

type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL,required"`                   // ConnectionString is the DSN of the application role.
	MaxConns          int32         `env:"PG_MAX_CONNS" envDefault:"10"`           // MaxConns caps the pool shared by every tenant.
	MinConns          int32         `env:"PG_MIN_CONNS" envDefault:"2"`            // MinConns is the number of connections kept warm.
	AcquireTimeout    time.Duration `env:"PG_ACQUIRE_TIMEOUT" envDefault:"5s"`     // AcquireTimeout bounds how long a session waits for a free connection.
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`  // HealthCheckPeriod is the period between pool health checks.
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"` // MaxConnIdleTime closes connections idle for longer.
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`  // MaxConnLifetime recycles connections older than this.

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`  // RetryAttempts is the number of connection attempts at startup.
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"2s"` // RetryInterval grows linearly with each failed attempt.

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"tenantkit_migrations"` // MigrationsTable stores the directory schema version.
}
