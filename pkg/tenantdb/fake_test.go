package tenantdb_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// call is one statement seen by a fake connection.
type call struct {
	sql  string
	args []any
}

// fakeConn records statements. By default QueryRow echoes its arguments back,
// which is what set_config does.
type fakeConn struct {
	mu        sync.Mutex
	calls     []call
	failOn    string
	echo      func(args []any) []any
	rowErr    error
	released  int
	destroyed int
	tx        *fakeTx
}

func (c *fakeConn) record(sql string, args []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call{sql: sql, args: args})
	if c.failOn != "" && strings.Contains(sql, c.failOn) {
		return fmt.Errorf("fake failure on %q", c.failOn)
	}
	return nil
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := c.record(sql, args); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if err := c.record(sql, args); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("fake query not supported")
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if err := c.record(sql, args); err != nil {
		return fakeRow{err: err}
	}
	if c.rowErr != nil {
		return fakeRow{err: c.rowErr}
	}
	values := args
	if c.echo != nil {
		values = c.echo(args)
	}
	return fakeRow{values: values}
}

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	if c.tx == nil {
		c.tx = &fakeTx{conn: c}
	}
	return c.tx, nil
}

func (c *fakeConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released++
}

func (c *fakeConn) Destroy(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed++
	return nil
}

func (c *fakeConn) PID() uint32 { return 4242 }

func (c *fakeConn) statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, cl := range c.calls {
		out[i] = cl.sql
	}
	return out
}

func (c *fakeConn) lastCall() call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[len(c.calls)-1]
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > len(r.values) {
		return fmt.Errorf("fake row: %d values for %d destinations", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = fmt.Sprint(r.values[i])
		case *uuid.UUID:
			v, ok := r.values[i].(uuid.UUID)
			if !ok {
				return fmt.Errorf("fake row: value %d is not a uuid", i)
			}
			*p = v
		default:
			return fmt.Errorf("fake row: unsupported destination %T", d)
		}
	}
	return nil
}

// fakeTx implements the parts of pgx.Tx used by sessions.
type fakeTx struct {
	pgx.Tx
	conn       *fakeConn
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.conn.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

// fakePool hands out the same connection, or fails.
type fakePool struct {
	conn     *fakeConn
	err      error
	block    bool
	acquired int
}

func (p *fakePool) Acquire(ctx context.Context) (tenantdb.Conn, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return p.conn, nil
}
