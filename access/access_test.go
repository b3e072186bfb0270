package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/schema"
)

func TestSolveBoolLiteral(t *testing.T) {
	arena := access.NewArena()
	falseID := arena.Add(access.BoolLit(false))
	trueID := arena.Add(access.BoolLit(true))

	ctx := &access.SimpleRequestContext{ID: "u1"}

	assert.True(t, access.Solve(arena, falseID, ctx).IsForbidden())
	assert.False(t, access.Solve(arena, trueID, ctx).IsForbidden())
}

func TestSolveRelationalConcrete(t *testing.T) {
	arena := access.NewArena()
	// role == "admin"
	expr := access.Relational(schema.OpEQ,
		access.ContextOperand("role"),
		access.ValueOperand(schema.StringValue("admin")),
	)
	id := arena.Add(expr)

	admin := &access.SimpleRequestContext{Values: map[string]schema.ConstValue{"role": schema.StringValue("admin")}}
	guest := &access.SimpleRequestContext{Values: map[string]schema.ConstValue{"role": schema.StringValue("guest")}}

	assert.False(t, access.Solve(arena, id, admin).IsForbidden())
	assert.True(t, access.Solve(arena, id, guest).IsForbidden())
}

func TestSolveRelationalResidual(t *testing.T) {
	arena := access.NewArena()
	// owner_id == AuthContext.userId  -- residual row predicate (column vs context).
	path := schema.NewColumnPath(1, schema.LeafLink(2))
	expr := access.Relational(schema.OpEQ, access.ColumnOperand(path), access.ContextOperand("userId"))
	id := arena.Add(expr)

	ctx := &access.SimpleRequestContext{Values: map[string]schema.ConstValue{"userId": schema.StringValue("u1")}}
	residue := access.Solve(arena, id, ctx)

	assert.Equal(t, access.ResiduePredicate, residue.Kind)
	assert.Equal(t, schema.PredComparison, residue.Predicate.Kind)
}

func TestSolveMissingContextDenies(t *testing.T) {
	arena := access.NewArena()
	expr := access.Relational(schema.OpEQ, access.ContextOperand("missing"), access.ValueOperand(schema.StringValue("x")))
	id := arena.Add(expr)

	assert.True(t, access.Solve(arena, id, &access.SimpleRequestContext{}).IsForbidden())
}

// A field with read access literal False is masked out of the response.
func TestCheckAccessMasksUnauthorizedField(t *testing.T) {
	arena := access.NewArena()
	denyID := arena.Add(access.BoolLit(false))

	entity := &schema.EntityType{
		Name: "User",
		Fields: []schema.Field{
			{Name: "id"},
			{Name: "name"},
			{Name: "ssn", Access: schema.AccessBundle{Read: denyID}},
		},
		Access: schema.AccessBundle{}, // Read defaults to arena index 0 (always true)
	}

	outcome := access.CheckAccess(arena, &access.SimpleRequestContext{}, entity, []string{"id", "name", "ssn"}, access.Retrieve)

	assert.Equal(t, []string{"ssn"}, outcome.UnauthorizedFields)
	assert.Equal(t, schema.True(), outcome.EntityPredicate)
}

func TestCheckRetrieveAccessForbidden(t *testing.T) {
	arena := access.NewArena()
	denyID := arena.Add(access.BoolLit(false))

	_, err := access.CheckRetrieveAccess(arena, &access.SimpleRequestContext{}, "User", denyID)
	assert.Error(t, err)
}
