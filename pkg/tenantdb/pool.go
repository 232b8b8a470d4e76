package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the statement surface shared by sessions, transactions and pool connections.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is a checked-out physical connection.
type Conn interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)

	// Release returns the connection to the pool.
	Release()

	// Destroy closes the physical connection instead of returning it to the pool.
	Destroy(ctx context.Context) error

	// PID is the backend process id, used in logs.
	PID() uint32
}

// Pool hands out connections.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// NewPool adapts a pgx pool.
func NewPool(pool *pgxpool.Pool) Pool {
	return &pgxPool{pool: pool}
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p *pgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{Conn: c}, nil
}

type pgxConn struct {
	*pgxpool.Conn
}

func (c *pgxConn) Destroy(ctx context.Context) error {
	return c.Hijack().Close(ctx)
}

func (c *pgxConn) PID() uint32 {
	return c.Conn.Conn().PgConn().PID()
}
