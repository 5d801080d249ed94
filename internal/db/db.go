// Package db opens the Postgres connection shared by every store in the
// core. All stores participate in the caller's *sql.Tx where the spec
// requires transactional participation (enqueue, scheduler promotion).
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity, mirroring the teacher's store/postgres.Open.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Bootstrap performs a connectivity check to ensure Postgres is reachable,
// without running schema migrations (migrations/ is applied out of band).
func Bootstrap(ctx context.Context, dsn string) error {
	conn, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return conn.PingContext(ctx)
}

// Execer is satisfied by both *sql.DB and *sql.Tx, letting store methods
// accept either a bare connection or an in-flight transaction (the outbox
// enqueue path needs the latter to participate in the caller's transaction,
// per spec §4.1).
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
