package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exocore "github.com/exograph/exo-core"
	"github.com/exograph/exo-core/txn"
)

type fakeSQLState struct{ code string }

func (e fakeSQLState) Error() string   { return "sqlstate " + e.code }
func (e fakeSQLState) SQLState() string { return e.code }

type scriptedClient struct {
	queryResponses []queryResponse
	queryCalls     int
	execCalls      int
}

type queryResponse struct {
	rows []txn.Row
	err  error
}

func (c *scriptedClient) Exec(ctx context.Context, op txn.Operation) (int64, error) {
	c.execCalls++
	return 1, nil
}

func (c *scriptedClient) Query(ctx context.Context, op txn.Operation) ([]txn.Row, error) {
	resp := c.queryResponses[c.queryCalls]
	c.queryCalls++
	return resp.rows, resp.err
}

func fastPolicy() txn.RetryPolicy {
	p := txn.DefaultRetryPolicy()
	p.Backoff.Base = 0
	p.Backoff.Max = 1
	return p
}

func TestExecuteRetriesTransientSelectThenSucceeds(t *testing.T) {
	client := &scriptedClient{queryResponses: []queryResponse{
		{err: fakeSQLState{code: "57P03"}},
		{rows: []txn.Row{{"id": int64(1)}}},
	}}
	script := txn.Script{Steps: []txn.Step{
		txn.Concrete(txn.Operation{Kind: txn.Select, SQL: "SELECT 1", Columns: []string{"id"}}),
	}}

	rows, err := txn.Execute(context.Background(), client, script, fastPolicy(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, client.queryCalls)
}

func TestExecuteWritesAreNotRetried(t *testing.T) {
	client := &scriptedClient{}
	script := txn.Script{Steps: []txn.Step{
		txn.Concrete(txn.Operation{Kind: txn.Insert, SQL: "INSERT INTO t VALUES (1)"}),
	}}

	_, err := txn.Execute(context.Background(), client, script, fastPolicy(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, client.execCalls)
}

func TestExecutePrecheckFailureIsAuthorization(t *testing.T) {
	client := &scriptedClient{queryResponses: []queryResponse{
		{rows: nil},
	}}
	script := txn.Script{Steps: []txn.Step{
		txn.Precheck("Todo", txn.Operation{Kind: txn.Select, SQL: "SELECT 1"}),
	}}

	_, err := txn.Execute(context.Background(), client, script, fastPolicy(), nil)
	require.Error(t, err)
	assert.True(t, exocore.IsAuthorization(err))
}

func TestExecuteNeedsTransaction(t *testing.T) {
	one := txn.Script{Steps: []txn.Step{txn.Concrete(txn.Operation{Kind: txn.Select})}}
	two := txn.Script{Steps: []txn.Step{txn.Concrete(txn.Operation{Kind: txn.Select}), txn.Concrete(txn.Operation{Kind: txn.Select})}}
	assert.False(t, one.NeedsTransaction())
	assert.True(t, two.NeedsTransaction())
}

func TestExecuteFilterStepBuildsANYPredicateFromPriorRows(t *testing.T) {
	client := &scriptedClient{queryResponses: []queryResponse{
		{rows: []txn.Row{{"id": int64(1)}, {"id": int64(2)}}},
		{rows: []txn.Row{{"id": int64(1)}, {"id": int64(2)}}},
	}}
	script := txn.Script{}
	first := script.Append(txn.Concrete(txn.Operation{Kind: txn.Select, SQL: "SELECT id FROM todo", Columns: []string{"id"}}))
	script.Append(txn.FilterStep(first, "todo", []string{"id"}, []string{"id"}, "true", nil))

	rows, err := txn.Execute(context.Background(), client, script, fastPolicy(), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBackoffDelayStaysWithinCappedRange(t *testing.T) {
	b := txn.Backoff{Base: 50_000_000, Max: 500_000_000} // ns: 50ms/500ms
	d := b.Delay(1)
	assert.GreaterOrEqual(t, int64(d), int64(25_000_000))
	assert.LessOrEqual(t, int64(d), int64(50_000_000))
}

func TestIsTransientMatchesSQLSTATE(t *testing.T) {
	assert.True(t, txn.IsTransient(fakeSQLState{code: "57P03"}))
	assert.False(t, txn.IsTransient(errors.New("syntax error")))
}
