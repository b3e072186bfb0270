package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exograph/exo-core/schema"
)

func TestAndOrIdentities(t *testing.T) {
	x := schema.Compare(schema.OpEQ, schema.ValueOperand(schema.Int64Value(1)), schema.ValueOperand(schema.Int64Value(1)))

	assert.Equal(t, x, schema.And(schema.True(), x))
	assert.Equal(t, schema.False(), schema.And(schema.False(), x))
	assert.Equal(t, x, schema.Or(schema.False(), x))
	assert.Equal(t, schema.True(), schema.Or(schema.True(), x))
}

func TestNotCollapses(t *testing.T) {
	assert.Equal(t, schema.False(), schema.Not(schema.True()))
	assert.Equal(t, schema.True(), schema.Not(schema.False()))
}

func TestColumnPathExtend(t *testing.T) {
	base := schema.NewColumnPath(1, schema.RelationLink(10))

	withLeaf, err := base.Extend(schema.LeafLink(5))
	require.NoError(t, err)
	assert.True(t, withLeaf.IsLeaf())

	// Extending a leaf-terminated path with a relation drops the leaf first.
	extended, err := withLeaf.Extend(schema.RelationLink(11))
	require.NoError(t, err)
	assert.False(t, extended.IsLeaf())
	assert.Len(t, extended.Links, 2)

	// Two consecutive leaves are disallowed.
	_, err = withLeaf.Extend(schema.LeafLink(6))
	assert.Error(t, err)
}

func TestColumnPathExtendOptionalIdentity(t *testing.T) {
	base := schema.NewColumnPath(1, schema.RelationLink(10))
	same, err := base.ExtendOptional(nil)
	require.NoError(t, err)
	assert.Equal(t, base, same)
}

func TestConstValueRoundTrip(t *testing.T) {
	v := schema.Int64Value(42)
	i, ok := v.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)
	assert.Equal(t, int64(42), v.Any())

	dec := schema.DecimalValue("12.50")
	s, ok := dec.String()
	assert.True(t, ok)
	assert.Equal(t, "12.50", s)
}
