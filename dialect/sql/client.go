package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/dialect"
	"github.com/exograph/exo-core/txn"
)

// Client adapts a dialect.ExecQuerier (a *Driver or a *Tx) to txn.Client,
// the interface txn.Execute drives a Script's steps through. It's the
// first concrete txn.Client: every Operation a Script produces is already
// just SQL text, bound args, and result columns, so the adapter only has
// to round-trip those through ExecQuerier's Exec/Query methods.
type Client struct {
	ExecQuerier dialect.ExecQuerier
}

// NewClient wraps q as a txn.Client.
func NewClient(q dialect.ExecQuerier) Client {
	return Client{ExecQuerier: q}
}

// Exec runs an Insert/Update/Delete Operation and reports rows affected.
func (c Client) Exec(ctx context.Context, op txn.Operation) (int64, error) {
	var res sql.Result
	if err := c.ExecQuerier.Exec(ctx, op.SQL, op.Args, &res); err != nil {
		return 0, fmt.Errorf("dialect/sql: client: exec: %w", err)
	}
	return res.RowsAffected()
}

// Query runs a Select Operation and scans its result set into txn.Rows,
// keyed by op.Columns (falling back to the driver-reported column names
// when the caller didn't supply any).
func (c Client) Query(ctx context.Context, op txn.Operation) ([]txn.Row, error) {
	var rows Rows
	if err := c.ExecQuerier.Query(ctx, op.SQL, op.Args, &rows); err != nil {
		return nil, fmt.Errorf("dialect/sql: client: query: %w", err)
	}
	defer rows.Close()

	cols := op.Columns
	if len(cols) == 0 {
		var err error
		cols, err = rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: client: columns: %w", err)
		}
	}

	var out []txn.Row
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dialect/sql: client: scan: %w", err)
		}
		row := make(txn.Row, len(cols))
		for i, col := range cols {
			row[col] = dest[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/sql: client: rows: %w", err)
	}
	return out, nil
}

var _ txn.Client = Client{}

// WithRequestSessionVars attaches the caller's id and role list as
// Postgres session variables (exo.actor_id, exo.roles), scoped to ctx via
// WithVar, so a row-level-security policy can read them back with
// current_setting('exo.actor_id', true) / current_setting('exo.roles',
// true) for the lifetime of the connection maySetVars binds them to.
func WithRequestSessionVars(ctx context.Context, rc access.RequestContext) context.Context {
	ctx = WithVar(ctx, "exo.actor_id", rc.GetID())
	ctx = WithVar(ctx, "exo.roles", strings.Join(rc.GetRoles(), ","))
	return ctx
}
