package response_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exocore "github.com/exograph/exo-core"
	"github.com/exograph/exo-core/response"
)

func TestAssembleNoRowsYieldsAbsentBody(t *testing.T) {
	res, err := response.Assemble(nil)
	require.NoError(t, err)
	assert.Nil(t, res.Body)
}

func TestAssembleOneRowYieldsThatBody(t *testing.T) {
	res, err := response.Assemble([]string{`{"id":1}`})
	require.NoError(t, err)
	require.NotNil(t, res.Body)
	assert.Equal(t, `{"id":1}`, *res.Body)
}

func TestAssembleMultipleRowsIsNonUniqueResult(t *testing.T) {
	_, err := response.Assemble([]string{`{"id":1}`, `{"id":2}`})
	require.Error(t, err)
	assert.True(t, exocore.IsNonUniqueResult(err))

	var nu *exocore.NonUniqueResultError
	require.ErrorAs(t, err, &nu)
	assert.Equal(t, 2, nu.Count)
}
