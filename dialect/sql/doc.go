// Package sql is the SQL backend: it opens and pools database/sql
// connections (Driver, Conn, Tx in driver.go), instruments them with
// query-level stats and slow-query logging (stats.go), and compiles a
// resolved GraphQL selection into a single JSON-aggregating Postgres query
// (Compiler in compile.go).
//
// # Connections
//
// Open (or OpenWithStats, for an instrumented driver) wraps a database/sql
// pool behind the dialect.Driver interface that pool and txn consume:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	...
//	tx, err := drv.Tx(ctx)
//
// WithVar/WithIntVar attach session-scoped Postgres variables (SET name =
// value before the statement, reset after) to a context; Client, built on
// top of a dialect.ExecQuerier, reads them via maySetVars on every
// Exec/Query so a caller's request identity survives into SQL-side
// row-level-security policies.
//
// # Compilation
//
// NewCompiler binds a *schema.Schema and a dialect name; CompileSelect
// lowers one plan.AbstractSelect into a single SQL statement whose
// result set is one JSON document per row, built out of nested
// jsonb_build_object/jsonb_agg calls rather than a join-and-stitch query
// plan. The low-level Builder (placeholder numbering, identifier quoting)
// is the only SQL-assembly primitive the compiler uses; there is no
// separate fluent statement-builder layer above it.
package sql
