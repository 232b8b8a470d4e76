package provisioning_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// fakeConn answers the statements a provisioning run issues. set_config rows
// echo their arguments; the slug check reports taken.
type fakeConn struct {
	mu        sync.Mutex
	sqls      []string
	taken     bool
	failOn    string
	failWith  error
	released  int
	destroyed int
	tx        *fakeTx
}

func (c *fakeConn) record(sql string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sqls = append(c.sqls, sql)
	if c.failOn != "" && strings.Contains(sql, c.failOn) {
		if c.failWith != nil {
			return c.failWith
		}
		return fmt.Errorf("fake failure on %q", c.failOn)
	}
	return nil
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if err := c.record(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (c *fakeConn) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if err := c.record(sql); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("fake query not supported")
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if err := c.record(sql); err != nil {
		return fakeRow{err: err}
	}
	if strings.Contains(sql, "EXISTS") {
		return fakeRow{values: []any{c.taken}}
	}
	return fakeRow{values: args}
}

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	c.tx = &fakeTx{conn: c}
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

func (c *fakeConn) PID() uint32 {
	return 7
}

// statementsFrom returns the statements recorded from the first one containing marker.
func (c *fakeConn) statementsFrom(marker string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sqls {
		if strings.Contains(s, marker) {
			return append([]string(nil), c.sqls[i:]...)
		}
	}
	return nil
}

func (c *fakeConn) executed(fragment string) bool {
	return len(c.statementsFrom(fragment)) > 0
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
		case *bool:
			v, ok := r.values[i].(bool)
			if !ok {
				return fmt.Errorf("fake row: value %d is not a bool", i)
			}
			*p = v
		default:
			return fmt.Errorf("fake row: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeTx struct {
	pgx.Tx
	conn       *fakeConn
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
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

type fakePool struct {
	conn     *fakeConn
	err      error
	acquired int
}

func (p *fakePool) Acquire(context.Context) (tenantdb.Conn, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return p.conn, nil
}
