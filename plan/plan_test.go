package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/plan"
	"github.com/exograph/exo-core/schema"
	"github.com/exograph/exo-core/validate"
)

// TestUniqueQueryMasksUnauthorizedField covers a unique query over
// User{id,name,ssn}, where ssn's read access is literal False.
func TestUniqueQueryMasksUnauthorizedField(t *testing.T) {
	arena := access.NewArena()
	denyID := arena.Add(access.BoolLit(false))

	user := schema.EntityType{
		ID:    1,
		Name:  "User",
		Table: "users",
		Fields: []schema.Field{
			{ID: 1, Name: "id", Relation: schema.Relation{Tag: schema.RelScalar, Column: "id", IsPK: true}},
			{ID: 2, Name: "name", Relation: schema.Relation{Tag: schema.RelScalar, Column: "name"}},
			{ID: 3, Name: "ssn", Relation: schema.Relation{Tag: schema.RelScalar, Column: "ssn"}, Access: schema.AccessBundle{Read: denyID}},
		},
	}
	reg := &schema.Schema{QueryRootName: "Query", Entities: []schema.EntityType{user}}
	cat := plan.NewCatalog(reg, arena)

	field := validate.ValidatedField{
		Name:      "user",
		Arguments: map[string]schema.ConstValue{"id": schema.Int64Value(1)},
		Subfields: []validate.ValidatedField{{Name: "id"}, {Name: "name"}, {Name: "ssn"}},
	}

	sel, err := cat.UniqueQuery(1).ResolveSelect(context.Background(), &access.SimpleRequestContext{}, field)
	require.NoError(t, err)
	require.Len(t, sel.Selection.Elements, 3)
	assert.Equal(t, plan.One, sel.Selection.Cardinality)
	assert.Equal(t, plan.ElemPhysical, sel.Selection.Elements[0].Element.Kind)
	assert.Equal(t, plan.ElemPhysical, sel.Selection.Elements[1].Element.Kind)
	assert.Equal(t, plan.ElemNull, sel.Selection.Elements[2].Element.Kind)
	assert.Equal(t, schema.PredComparison, sel.Predicate.Kind)
}

// TestTransitiveUnboundedExpansion covers a transitive relation path
// Author -> Set<Book> -> Publisher, traversed as "publishers".
func TestTransitiveUnboundedExpansion(t *testing.T) {
	arena := access.NewArena()

	const (
		bookRelID   schema.RelationID = 10
		publisherRel schema.RelationID = 20
	)

	publisher := schema.EntityType{
		ID:    3,
		Name:  "Publisher",
		Table: "publishers",
		Fields: []schema.Field{
			{ID: 30, Name: "name", Relation: schema.Relation{Tag: schema.RelScalar, Column: "name"}},
		},
	}
	book := schema.EntityType{
		ID:    2,
		Name:  "Book",
		Table: "books",
	}
	author := schema.EntityType{
		ID:    1,
		Name:  "Author",
		Table: "authors",
		Fields: []schema.Field{
			{ID: 1, Name: "id", Relation: schema.Relation{Tag: schema.RelScalar, Column: "id", IsPK: true}},
			{
				ID:   2,
				Name: "publishers",
				Relation: schema.Relation{
					Tag: schema.RelTransitive,
					Steps: []schema.TransitiveStep{
						{RelationID: bookRelID, TargetEntityID: 2, Cardinality: schema.Unbounded, FieldName: "books"},
						{RelationID: publisherRel, TargetEntityID: 3, Cardinality: schema.Optional, FieldName: "publisher"},
					},
				},
			},
		},
	}

	reg := &schema.Schema{QueryRootName: "Query", Entities: []schema.EntityType{author, book, publisher}}
	cat := plan.NewCatalog(reg, arena)

	field := validate.ValidatedField{
		Name: "authors",
		Subfields: []validate.ValidatedField{
			{Name: "id"},
			{Name: "publishers", Subfields: []validate.ValidatedField{{Name: "name"}}},
		},
	}

	sel, err := cat.CollectionQuery(1).ResolveSelect(context.Background(), &access.SimpleRequestContext{}, field)
	require.NoError(t, err)
	require.Len(t, sel.Selection.Elements, 2)

	pubElem := sel.Selection.Elements[1].Element
	require.Equal(t, plan.ElemJsonArrayExtract, pubElem.Kind)
	assert.Equal(t, "__transitive_value", pubElem.Key)

	bookHop := pubElem.Source
	require.Equal(t, plan.ElemSubSelect, bookHop.Kind)
	assert.Equal(t, bookRelID, bookHop.RelationID)
	assert.Equal(t, schema.EntityID(2), bookHop.SubSelect.Table)
	require.Len(t, bookHop.SubSelect.Selection.Elements, 1)
	assert.Equal(t, "__transitive_value", bookHop.SubSelect.Selection.Elements[0].Alias)

	publisherElem := bookHop.SubSelect.Selection.Elements[0].Element
	require.Equal(t, plan.ElemSubSelect, publisherElem.Kind)
	assert.Equal(t, publisherRel, publisherElem.RelationID)
	assert.Equal(t, schema.EntityID(3), publisherElem.SubSelect.Table)
	assert.Equal(t, plan.One, publisherElem.SubSelect.Selection.Cardinality)
	require.Len(t, publisherElem.SubSelect.Selection.Elements, 1)
	assert.Equal(t, "name", publisherElem.SubSelect.Selection.Elements[0].Alias)
}
