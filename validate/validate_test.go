package validate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exograph/exo-core/validate"
)

func roots() validate.RootNames {
	return validate.RootNames{Query: "Query", Mutation: "Mutation"}
}

func limits() validate.DepthLimits {
	return validate.DepthLimits{Normal: 5, Introspection: 10}
}

func TestValidateSimpleQuery(t *testing.T) {
	src := `query GetUser($id: Int!) { user(id: $id) { id name } }`
	op, err := validate.Validate(src, "", map[string]any{"id": float64(7)}, roots(), limits())
	require.NoError(t, err)
	require.Len(t, op.Fields, 1)

	user := op.Fields[0]
	assert.Equal(t, "user", user.Name)
	idArg, ok := user.Arguments["id"]
	require.True(t, ok)
	n, ok := idArg.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	names := []string{}
	for _, f := range user.Subfields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"id", "name"}, names)
}

func TestValidateMissingVariableFails(t *testing.T) {
	src := `query GetUser($id: Int!) { user(id: $id) { id } }`
	_, err := validate.Validate(src, "", map[string]any{}, roots(), limits())
	require.Error(t, err)
	assert.True(t, isReason(err, "VariableNotFound"))
}

func TestValidateDefaultedOptionalVariable(t *testing.T) {
	src := `query GetUsers($limit: Int = 10) { users(limit: $limit) { id } }`
	op, err := validate.Validate(src, "", map[string]any{}, roots(), limits())
	require.NoError(t, err)
	n, ok := op.Fields[0].Arguments["limit"].Int64()
	require.True(t, ok)
	assert.Equal(t, int64(10), n)
}

func TestValidateFragmentSpreadFlattens(t *testing.T) {
	src := `
		query Q { user(id: 1) { ...UserFields } }
		fragment UserFields on User { id name }
	`
	op, err := validate.Validate(src, "", nil, roots(), limits())
	require.NoError(t, err)
	names := []string{}
	for _, f := range op.Fields[0].Subfields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"id", "name"}, names)
}

func TestValidateUnknownFragmentFails(t *testing.T) {
	src := `query Q { user(id: 1) { ...Missing } }`
	_, err := validate.Validate(src, "", nil, roots(), limits())
	require.Error(t, err)
	assert.True(t, isReason(err, "FragmentNotFound"))
}

func TestValidateSelectionSetTooDeep(t *testing.T) {
	src := `query Q { a { b { c { d { e { f } } } } } }`
	_, err := validate.Validate(src, "", nil, roots(), validate.DepthLimits{Normal: 2, Introspection: 10})
	require.Error(t, err)
	assert.True(t, isReason(err, "SelectionSetTooDeep"))
}

func TestValidateIntrospectionUsesSeparateLimit(t *testing.T) {
	src := `query Q { __schema { types { fields { name } } } }`
	_, err := validate.Validate(src, "", nil, roots(), validate.DepthLimits{Normal: 1, Introspection: 10})
	require.NoError(t, err)
}

func TestValidateRequiresOperationNameWhenAmbiguous(t *testing.T) {
	src := `query A { a { id } } query B { b { id } }`
	_, err := validate.Validate(src, "", nil, roots(), limits())
	require.Error(t, err)
	assert.True(t, isReason(err, "OperationNotFound"))
}

func TestValidatePicksNamedOperation(t *testing.T) {
	src := `query A { a { id } } query B { b { id } }`
	op, err := validate.Validate(src, "B", nil, roots(), limits())
	require.NoError(t, err)
	assert.Equal(t, "B", op.Name)
	assert.Equal(t, "b", op.Fields[0].Name)
}

func isReason(err error, reason string) bool {
	return strings.Contains(err.Error(), reason)
}
