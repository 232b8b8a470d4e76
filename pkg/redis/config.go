package redis

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // ConnectionURL is redis://[:password@]host:port/db.
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"0"`                  // PoolSize overrides the go-redis default when positive.
	OpTimeout      time.Duration `env:"REDIS_OP_TIMEOUT" envDefault:"200ms"`             // OpTimeout bounds reads and writes so a slow cache degrades instead of stalling requests.
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`             // RetryAttempts is the number of pings tried at startup.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`            // RetryInterval is the pause between startup pings.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`          // ConnectTimeout bounds the whole startup sequence.
}
