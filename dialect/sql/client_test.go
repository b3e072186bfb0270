package sql

import (
	"context"
	"testing"

	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/dialect"
	"github.com/exograph/exo-core/txn"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := OpenDB(dialect.Postgres, db)
	mock.ExpectQuery(`SELECT id, name FROM "todos" WHERE id = \$1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "buy milk"))

	c := NewClient(drv)
	rows, err := c.Query(context.Background(), txn.Operation{
		Kind:    txn.Select,
		SQL:     `SELECT id, name FROM "todos" WHERE id = $1`,
		Args:    []any{1},
		Columns: []string{"id", "name"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "buy milk", rows[0]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClientExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := OpenDB(dialect.Postgres, db)
	mock.ExpectExec(`UPDATE "todos" SET done = \$1 WHERE id = \$2`).
		WithArgs(true, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := NewClient(drv)
	n, err := c.Exec(context.Background(), txn.Operation{
		Kind: txn.Update,
		SQL:  `UPDATE "todos" SET done = $1 WHERE id = $2`,
		Args: []any{true, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRequestSessionVars(t *testing.T) {
	ctx := WithRequestSessionVars(context.Background(), &access.SimpleRequestContext{
		ID:    "user-1",
		Roles: []string{"admin", "editor"},
	})
	actorID, ok := VarFromContext(ctx, "exo.actor_id")
	require.True(t, ok)
	assert.Equal(t, "user-1", actorID)
	roles, ok := VarFromContext(ctx, "exo.roles")
	require.True(t, ok)
	assert.Equal(t, "admin,editor", roles)
}
