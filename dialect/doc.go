// Package dialect is the thin abstraction pool, txn, and dialect/sql share
// over a database connection: Driver/Tx/ExecQuerier, plus the dialect-name
// constants the SQL compiler switches its identifier-quoting and
// placeholder style on.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Only Postgres is wired end to end (pool.NewPostgresDialer, the compiler's
// jsonb_build_object/jsonb_agg row shaping); MySQL and SQLite stay named so
// dialect/sql/sqlgraph's driver-agnostic error classifiers and
// dialect/sql.Builder's placeholder styles remain meaningful if a second
// backend is ever plugged in.
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
//	type Tx interface {
//	    Driver
//	    Commit() error
//	    Rollback() error
//	}
//
// # ExecQuerier Interface
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// # Usage
//
// Opening a connection and wrapping it as a txn.Client:
//
//	import (
//	    "github.com/exograph/exo-core/dialect"
//	    "github.com/exograph/exo-core/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//	client := sql.NewClient(drv)
//
// # Sub-packages
//
//   - dialect/sql: connection pooling primitives, statement compilation,
//     session-variable plumbing, and query statistics
//   - dialect/sql/sqlgraph: driver-agnostic constraint/transient error
//     classification used by txn
package dialect
