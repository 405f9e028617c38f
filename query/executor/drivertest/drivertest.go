// Package drivertest provides a scriptable database/sql driver for
// executor and builder tests. Canned result sets are consumed in FIFO
// order, every executed statement is logged, and an unscripted statement
// fails loudly, so tests can assert exactly how many queries a code path
// issues and what they looked like.
package drivertest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
)

// Statement is one executed statement as seen by the driver.
type Statement struct {
	SQL  string
	Args []driver.Value
}

// DB scripts results and records executions. Use Open to get a
// *sql.DB backed by it.
type DB struct {
	mu      sync.Mutex
	results []scripted
	log     []Statement
	execs   int
	queries int
}

type scripted struct {
	cols     []string
	rows     [][]driver.Value
	affected int64
	isExec   bool
}

// New returns an empty scripted database.
func New() *DB { return &DB{} }

// Open returns a *sql.DB that talks to this script.
func (d *DB) Open() *sql.DB {
	return sql.OpenDB(connector{db: d})
}

// QueueRows scripts the next query's result set.
func (d *DB) QueueRows(cols []string, rows ...[]driver.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, scripted{cols: cols, rows: rows})
}

// QueueExec scripts the next exec's affected-row count.
func (d *DB) QueueExec(affected int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, scripted{affected: affected, isExec: true})
}

// Log returns a copy of every executed statement so far.
func (d *DB) Log() []Statement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Statement(nil), d.log...)
}

// QueryCount returns how many row queries have executed.
func (d *DB) QueryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

// ExecCount returns how many execs have executed.
func (d *DB) ExecCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.execs
}

func (d *DB) popQuery(sqlText string, args []driver.Value) (scripted, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, Statement{SQL: sqlText, Args: append([]driver.Value(nil), args...)})
	d.queries++
	if len(d.results) == 0 {
		return scripted{}, fmt.Errorf("drivertest: unscripted query: %s", sqlText)
	}
	next := d.results[0]
	d.results = d.results[1:]
	if next.isExec {
		return scripted{}, fmt.Errorf("drivertest: query got exec script: %s", sqlText)
	}
	return next, nil
}

func (d *DB) popExec(sqlText string, args []driver.Value) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, Statement{SQL: sqlText, Args: append([]driver.Value(nil), args...)})
	d.execs++
	if len(d.results) == 0 {
		return 0, fmt.Errorf("drivertest: unscripted exec: %s", sqlText)
	}
	next := d.results[0]
	d.results = d.results[1:]
	if !next.isExec {
		return 0, fmt.Errorf("drivertest: exec got query script: %s", sqlText)
	}
	return next.affected, nil
}

type connector struct {
	db *DB
}

func (c connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{db: c.db}, nil
}

func (c connector) Driver() driver.Driver { return drv{db: c.db} }

type drv struct {
	db *DB
}

func (d drv) Open(string) (driver.Conn, error) { return &conn{db: d.db}, nil }

type conn struct {
	db *DB
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{db: c.db, sql: query}, nil
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("drivertest: transactions not supported")
}

type stmt struct {
	db  *DB
	sql string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	n, err := s.db.popExec(s.sql, args)
	if err != nil {
		return nil, err
	}
	return result{affected: n}, nil
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	sc, err := s.db.popQuery(s.sql, args)
	if err != nil {
		return nil, err
	}
	return &rows{cols: sc.cols, data: sc.rows}, nil
}

type result struct {
	affected int64
}

func (r result) LastInsertId() (int64, error) { return 0, nil }
func (r result) RowsAffected() (int64, error) { return r.affected, nil }

type rows struct {
	cols []string
	data [][]driver.Value
	pos  int
}

func (r *rows) Columns() []string { return r.cols }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}
