package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// statementBuilder produces PostgreSQL placeholders.
var statementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// executor rewrites placeholder schema references before delegating.
type executor struct {
	q  Querier
	tr Translator
}

func (e executor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return e.q.Exec(ctx, e.tr.Rewrite(sql), args...)
}

func (e executor) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return e.q.Query(ctx, e.tr.Rewrite(sql), args...)
}

func (e executor) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return e.q.QueryRow(ctx, e.tr.Rewrite(sql), args...)
}

func (e executor) ExecBuilder(ctx context.Context, b sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("tenantdb: build statement: %w", err)
	}
	return e.Exec(ctx, sql, args...)
}

func (e executor) QueryBuilder(ctx context.Context, b sq.Sqlizer) (pgx.Rows, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("tenantdb: build query: %w", err)
	}
	return e.Query(ctx, sql, args...)
}

func (e executor) QueryRowBuilder(ctx context.Context, b sq.Sqlizer) pgx.Row {
	sql, args, err := b.ToSql()
	if err != nil {
		return errRow{err: fmt.Errorf("tenantdb: build query: %w", err)}
	}
	return e.QueryRow(ctx, sql, args...)
}

// errRow is a pgx.Row whose Scan reports err.
type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

// Session is a connection configured for one tenant, or explicitly unscoped.
// It is not safe for concurrent use. Close returns the connection to the pool.
type Session struct {
	conn     Conn
	exec     executor
	identity tenant.Identity
	scoped   bool

	mu     sync.Mutex
	closed bool
}

func newSession(conn Conn, identity tenant.Identity, scoped bool) *Session {
	tr := Translator{}
	if scoped {
		tr = NewTranslator(identity.SchemaName)
	}
	return &Session{
		conn:     conn,
		exec:     executor{q: conn, tr: tr},
		identity: identity,
		scoped:   scoped,
	}
}

// Identity returns the tenant the session is bound to. Unscoped sessions return the zero identity.
func (s *Session) Identity() tenant.Identity {
	return s.identity
}

// Scoped reports whether the session is bound to a tenant.
func (s *Session) Scoped() bool {
	return s.scoped
}

// Builder returns a squirrel statement builder using $n placeholders.
func (s *Session) Builder() sq.StatementBuilderType {
	return statementBuilder
}

func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.isClosed() {
		return pgconn.CommandTag{}, ErrSessionClosed
	}
	return s.exec.Exec(ctx, sql, args...)
}

func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	return s.exec.Query(ctx, sql, args...)
}

func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.isClosed() {
		return errRow{err: ErrSessionClosed}
	}
	return s.exec.QueryRow(ctx, sql, args...)
}

func (s *Session) ExecBuilder(ctx context.Context, b sq.Sqlizer) (pgconn.CommandTag, error) {
	if s.isClosed() {
		return pgconn.CommandTag{}, ErrSessionClosed
	}
	return s.exec.ExecBuilder(ctx, b)
}

func (s *Session) QueryBuilder(ctx context.Context, b sq.Sqlizer) (pgx.Rows, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	return s.exec.QueryBuilder(ctx, b)
}

func (s *Session) QueryRowBuilder(ctx context.Context, b sq.Sqlizer) pgx.Row {
	if s.isClosed() {
		return errRow{err: ErrSessionClosed}
	}
	return s.exec.QueryRowBuilder(ctx, b)
}

// Begin starts a transaction on the session's connection.
func (s *Session) Begin(ctx context.Context) (*Tx, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tenantdb: begin: %w", err)
	}
	return &Tx{tx: tx, executor: executor{q: tx, tr: s.exec.tr}}, nil
}

// InTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *Session) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.Release()
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Tx is a transaction that rewrites placeholder schema references like its session.
type Tx struct {
	executor
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("tenantdb: commit: %w", err)
	}
	return nil
}

// Rollback is a no-op on a committed transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("tenantdb: rollback: %w", err)
	}
	return nil
}
