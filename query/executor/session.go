// Package executor dispatches compiled plans against a database/sql
// backend and materializes rows into registered entity types. A Session
// carries the dialect, the unloaded-association policy derived from its
// mode, a bounded prepared-statement cache, and counters that make the
// one-query-per-association guarantee checkable.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/quarrydb/quarry/query/cache"
	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/query/sqlgen"
	"github.com/quarrydb/quarry/registry"
)

// QueryHook observes every statement sent to the backend. Hooks run
// synchronously; keep them cheap.
type QueryHook func(sqlText string, args []any, d time.Duration, err error)

// Session executes queries. Sessions are safe for concurrent use.
type Session struct {
	db      *sql.DB
	dialect sqlgen.Dialect
	comp    *sqlgen.Compiler
	mode    Mode
	log     *slog.Logger
	stmts   *cache.LRU
	hook    QueryHook
	stats   counters

	stmtCacheSize int
}

// Option configures a Session.
type Option func(*Session)

// WithDialect sets the SQL dialect. Postgres is the default.
func WithDialect(d sqlgen.Dialect) Option {
	return func(s *Session) { s.dialect = d }
}

// WithMode fixes the session mode instead of reading QUARRY_ENV.
func WithMode(m Mode) Option {
	return func(s *Session) { s.mode = m }
}

// WithLogger sets the logger statements are reported to at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithStatementCacheSize bounds the prepared-statement cache. Zero
// disables preparation and sends text queries directly.
func WithStatementCacheSize(n int) Option {
	return func(s *Session) { s.stmtCacheSize = n }
}

// WithQueryHook registers an observer for executed statements.
func WithQueryHook(h QueryHook) Option {
	return func(s *Session) { s.hook = h }
}

const defaultStmtCacheSize = 256

// New builds a Session over an open *sql.DB.
func New(db *sql.DB, opts ...Option) *Session {
	s := &Session{
		db:            db,
		dialect:       sqlgen.Postgres(),
		mode:          ModeFromEnv(),
		log:           slog.New(slog.DiscardHandler),
		stmtCacheSize: defaultStmtCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.comp = sqlgen.NewCompiler(s.dialect)
	if s.stmtCacheSize > 0 {
		s.stmts = cache.New(s.stmtCacheSize, 0, func(_ string, v any) {
			if st, ok := v.(*sql.Stmt); ok {
				st.Close()
			}
		})
	}
	return s
}

// Open connects to the given provider, verifies the connection, and
// returns a Session with the matching dialect. The caller is responsible
// for importing the driver.
func Open(ctx context.Context, provider, dsn string, opts ...Option) (*Session, error) {
	dialect, err := sqlgen.DialectFor(provider)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName(provider), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", provider, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", provider, err)
	}
	return New(db, append([]Option{WithDialect(dialect)}, opts...)...), nil
}

func driverName(provider string) string {
	switch provider {
	case "postgres", "postgresql":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite3"
	}
	return provider
}

// Close releases the prepared statements and the underlying pool.
func (s *Session) Close() error {
	if s.stmts != nil {
		s.stmts.Clear()
	}
	return s.db.Close()
}

// DB exposes the underlying pool.
func (s *Session) DB() *sql.DB { return s.db }

// Dialect returns the session's dialect.
func (s *Session) Dialect() sqlgen.Dialect { return s.dialect }

// Mode returns the session's mode.
func (s *Session) Mode() Mode { return s.mode }

// Compiler returns the session's compiler, used by builders for ToSQL.
func (s *Session) Compiler() *sqlgen.Compiler { return s.comp }

// Stats snapshots the session counters.
func (s *Session) Stats() Stats { return s.stats.snapshot() }

// All compiles and executes p, returning the materialized rows in
// backend order with relation cells bound and preloads resolved.
func All[T any](ctx context.Context, s *Session, t *registry.Table, p plan.Plan) ([]T, error) {
	slice, err := s.queryRows(ctx, t, p)
	if err != nil {
		return nil, err
	}
	return slice.Interface().([]T), nil
}

// ScalarNull runs an aggregate plan and scans its single value. ok is
// false when the backend returned NULL, which is what aggregates other
// than COUNT do over an empty set. A none plan reports NULL without
// touching the backend.
func ScalarNull[V any](ctx context.Context, s *Session, t *registry.Table, p plan.Plan) (V, bool, error) {
	var zero V
	if p.None {
		return zero, false, nil
	}
	st, err := s.comp.Compile(t, p)
	if err != nil {
		return zero, false, err
	}
	rows, err := s.run(ctx, "aggregate", t.Name(), st)
	if err != nil {
		return zero, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, false, s.wrapErr("aggregate", t.Name(), st.SQL, err)
		}
		return zero, false, nil
	}
	var holder sql.Null[V]
	if err := rows.Scan(&holder); err != nil {
		return zero, false, s.wrapErr("aggregate", t.Name(), st.SQL, err)
	}
	if !holder.Valid {
		return zero, false, nil
	}
	return holder.V, true, nil
}

// DeleteAll issues an unconditional DELETE for the whole table and
// returns the number of rows removed. No predicate is ever attached.
func (s *Session) DeleteAll(ctx context.Context, t *registry.Table) (int64, error) {
	st := s.comp.CompileDeleteAll(t)
	res, err := s.exec(ctx, "delete_all", t.Name(), st)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.wrapErr("delete_all", t.Name(), st.SQL, err)
	}
	return n, nil
}

// run sends a compiled read to the backend, preparing through the cache
// when one is configured.
func (s *Session) run(ctx context.Context, op, table string, st sqlgen.Statement) (*sql.Rows, error) {
	started := time.Now()
	var rows *sql.Rows
	var err error
	if ps, perr := s.prepared(ctx, st.SQL); perr != nil {
		err = perr
	} else if ps != nil {
		rows, err = ps.QueryContext(ctx, st.Args...)
	} else {
		rows, err = s.db.QueryContext(ctx, st.SQL, st.Args...)
	}
	s.observe(st, time.Since(started), err)
	if err != nil {
		return nil, s.wrapErr(op, table, st.SQL, err)
	}
	return rows, nil
}

func (s *Session) exec(ctx context.Context, op, table string, st sqlgen.Statement) (sql.Result, error) {
	started := time.Now()
	var res sql.Result
	var err error
	if ps, perr := s.prepared(ctx, st.SQL); perr != nil {
		err = perr
	} else if ps != nil {
		res, err = ps.ExecContext(ctx, st.Args...)
	} else {
		res, err = s.db.ExecContext(ctx, st.SQL, st.Args...)
	}
	s.observe(st, time.Since(started), err)
	if err != nil {
		return nil, s.wrapErr(op, table, st.SQL, err)
	}
	return res, nil
}

// prepared returns the cached statement for sqlText, preparing on miss.
// A nil statement with nil error means the cache is disabled.
func (s *Session) prepared(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	if s.stmts == nil {
		return nil, nil
	}
	if v, ok := s.stmts.Get(sqlText); ok {
		s.stats.stmtHits.Add(1)
		return v.(*sql.Stmt), nil
	}
	s.stats.stmtMisses.Add(1)
	ps, err := s.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	s.stmts.Put(sqlText, ps)
	return ps, nil
}

func (s *Session) observe(st sqlgen.Statement, d time.Duration, err error) {
	s.stats.record(d)
	if err != nil {
		s.log.Debug("query failed", "sql", st.SQL, "args", len(st.Args), "duration", d, "error", err)
	} else {
		s.log.Debug("query", "sql", st.SQL, "args", len(st.Args), "duration", d)
	}
	if s.hook != nil {
		s.hook(st.SQL, st.Args, d, err)
	}
}
