package dialect

import "context"

// Dialect name constants. Only Postgres is wired end to end; MySQL and
// SQLite remain named so
// the sqlgraph-style error classifiers (driver-agnostic duck typing) stay
// meaningful if a second backend is ever plugged in, matching the
// teacher's multi-dialect posture even though only one dialect is wired.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the Exec and Query methods common to a Driver and a Tx.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface every connection (direct or pooled) must satisfy.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name this driver speaks.
	Dialect() string
}

// Tx is a Driver bound to an open transaction.
type Tx interface {
	Driver
	Commit() error
	Rollback() error
}
