// Package exocore holds the cross-cutting types shared by every stage of
// the request pipeline: the error taxonomy surfaced to callers (§7 of the
// design). Dialect name constants live in package dialect.
//
// Subpackages implement one pipeline stage each:
//
//   - schema: the read-only, process-wide schema registry.
//   - access: the access-predicate arena and solver.
//   - validate: GraphQL operation validation and variable coercion.
//   - plan: the selection planner (validated operation -> AbstractSelect).
//   - dialect/sql: the SQL builder (AbstractSelect -> parameterized SQL).
//   - txn: the transaction engine.
//   - pool: the connection manager.
//   - compute: the computed-field post-processor.
//   - response: response assembly.
//   - health: the /healthz external interface.
package exocore
