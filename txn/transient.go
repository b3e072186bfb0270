package txn

import "github.com/exograph/exo-core/dialect/sql/sqlgraph"

// IsTransient reports whether err is a transient connection/shutdown
// condition safe to retry on a fresh connection. It delegates entirely to
// sqlgraph.IsTransientError, which already classifies exactly the five
// relevant SQLSTATEs (admin_shutdown, crash_shutdown, cannot_connect_now,
// connection_failure, connection_does_not_exist)
// through the same driver-agnostic errorCoder/sqlStateError duck typing
// used for constraint-violation classification.
func IsTransient(err error) bool {
	return sqlgraph.IsTransientError(err)
}
