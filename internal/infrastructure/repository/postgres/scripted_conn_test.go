package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
)

type recordedExec struct {
	query string
	args  []any
}

// scriptedConn is a database/sql connection that records every Exec and
// answers RowsAffected from a script, so repository statements can be
// checked in the order the transaction sends them.
type scriptedConn struct {
	mu       sync.Mutex
	execs    []recordedExec
	commits  int
	affected func(query string, args []any) int64
}

func newScriptedDB(t *testing.T, affected func(query string, args []any) int64) (*sqlx.DB, *scriptedConn) {
	t.Helper()
	conn := &scriptedConn{affected: affected}
	db := sql.OpenDB(scriptedConnector{conn: conn})
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), conn
}

func (c *scriptedConn) recorded() []recordedExec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedExec(nil), c.execs...)
}

func (c *scriptedConn) commitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare is not scripted")
}

func (c *scriptedConn) Close() error { return nil }

func (c *scriptedConn) Begin() (driver.Tx, error) {
	return scriptedTx{conn: c}, nil
}

func (c *scriptedConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return scriptedTx{conn: c}, nil
}

// CheckNamedValue keeps argument values unconverted for assertions.
func (c *scriptedConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *scriptedConn) ExecContext(_ context.Context, query string, named []driver.NamedValue) (driver.Result, error) {
	args := make([]any, 0, len(named))
	for _, nv := range named {
		args = append(args, nv.Value)
	}
	c.mu.Lock()
	c.execs = append(c.execs, recordedExec{query: query, args: args})
	c.mu.Unlock()

	var rows int64 = 1
	if c.affected != nil {
		rows = c.affected(query, args)
	}
	return driver.RowsAffected(rows), nil
}

type scriptedTx struct {
	conn *scriptedConn
}

func (tx scriptedTx) Commit() error {
	tx.conn.mu.Lock()
	tx.conn.commits++
	tx.conn.mu.Unlock()
	return nil
}

func (tx scriptedTx) Rollback() error { return nil }

type scriptedConnector struct {
	conn *scriptedConn
}

func (c scriptedConnector) Connect(context.Context) (driver.Conn, error) {
	return c.conn, nil
}

func (c scriptedConnector) Driver() driver.Driver {
	return scriptedDriver{conn: c.conn}
}

type scriptedDriver struct {
	conn *scriptedConn
}

func (d scriptedDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}
