package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exograph/exo-core/plan"
	"github.com/exograph/exo-core/schema"
)

func userSchema() *schema.Schema {
	user := schema.EntityType{
		ID:    1,
		Name:  "User",
		Table: "users",
		Fields: []schema.Field{
			{ID: 1, Name: "id", Relation: schema.Relation{Tag: schema.RelScalar, Column: "id", IsPK: true}},
			{ID: 2, Name: "name", Relation: schema.Relation{Tag: schema.RelScalar, Column: "name"}},
		},
	}
	return &schema.Schema{Entities: []schema.EntityType{user}}
}

func TestCompileSelectUniqueRow(t *testing.T) {
	reg := userSchema()
	sel := &plan.AbstractSelect{
		Table: 1,
		Selection: plan.Selection{
			Elements: []plan.AliasedSelectionElement{
				{Alias: "id", Element: plan.PhysicalElement(1)},
				{Alias: "name", Element: plan.PhysicalElement(2)},
			},
			Cardinality: plan.One,
		},
		Predicate: schema.Compare(schema.OpEQ, schema.ColumnOperand(schema.NewColumnPath(1, schema.LeafLink(1))), schema.ValueOperand(schema.Int64Value(7))),
	}

	c := NewCompiler(reg)
	text, args, err := c.CompileSelect(sel)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "SELECT jsonb_build_object("))
	assert.Contains(t, text, `FROM "users" AS "t1"`)
	assert.Contains(t, text, `WHERE "t1"."id" = $1`)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestCompileSelectCollectionAggregates(t *testing.T) {
	reg := userSchema()
	limit := int64(10)
	sel := &plan.AbstractSelect{
		Table: 1,
		Selection: plan.Selection{
			Elements:    []plan.AliasedSelectionElement{{Alias: "id", Element: plan.PhysicalElement(1)}},
			Cardinality: plan.Many,
		},
		Predicate: schema.True(),
		OrderBy: plan.AbstractOrderBy{Terms: []plan.OrderByTerm{
			{Kind: plan.OrderTermScalar, Path: schema.NewColumnPath(1, schema.LeafLink(2)), Direction: plan.OrderDesc},
		}},
		Limit: &limit,
	}

	c := NewCompiler(reg)
	text, _, err := c.CompileSelect(sel)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "SELECT coalesce(jsonb_agg(__row.j), '[]'::jsonb)::text FROM ("))
	assert.Contains(t, text, `ORDER BY "t1"."name" DESC`)
	assert.Contains(t, text, "LIMIT 10")
}

func TestCompileSelectIsStableAcrossRepeatedBuilds(t *testing.T) {
	reg := userSchema()
	sel := &plan.AbstractSelect{
		Table:     1,
		Selection: plan.Selection{Elements: []plan.AliasedSelectionElement{{Alias: "id", Element: plan.PhysicalElement(1)}}, Cardinality: plan.One},
		Predicate: schema.True(),
	}
	c := NewCompiler(reg)
	text1, args1, err := c.CompileSelect(sel)
	require.NoError(t, err)
	text2, args2, err := c.CompileSelect(sel)
	require.NoError(t, err)
	assert.Equal(t, text1, text2)
	assert.Equal(t, args1, args2)
}

func TestCompileSelectNestedOneToManyCorrelatesOnForeignKey(t *testing.T) {
	author := schema.EntityType{
		ID:    1,
		Name:  "Author",
		Table: "authors",
		Fields: []schema.Field{
			{ID: 1, Name: "id", Relation: schema.Relation{Tag: schema.RelScalar, Column: "id", IsPK: true}},
			{ID: 2, Name: "books", Relation: schema.Relation{
				Tag: schema.RelOneToMany, OneToManyID: 50, OneToManyForeignID: 2, OneToManyCard: schema.Unbounded,
			}},
		},
	}
	book := schema.EntityType{
		ID:    2,
		Name:  "Book",
		Table: "books",
		Fields: []schema.Field{
			{ID: 10, Name: "title", Relation: schema.Relation{Tag: schema.RelScalar, Column: "title"}},
			{ID: 11, Name: "author_id", Relation: schema.Relation{
				Tag: schema.RelManyToOne, SelfColumns: []string{"author_id"}, ForeignID: 1, ManyToOneID: 50,
			}},
		},
	}
	reg := &schema.Schema{Entities: []schema.EntityType{author, book}}

	nested := &plan.AbstractSelect{
		Table:     2,
		Selection: plan.Selection{Elements: []plan.AliasedSelectionElement{{Alias: "title", Element: plan.PhysicalElement(10)}}, Cardinality: plan.Many},
		Predicate: schema.True(),
	}
	sel := &plan.AbstractSelect{
		Table: 1,
		Selection: plan.Selection{
			Elements: []plan.AliasedSelectionElement{
				{Alias: "id", Element: plan.PhysicalElement(1)},
				{Alias: "books", Element: plan.SubSelectElement(50, nested)},
			},
			Cardinality: plan.One,
		},
		Predicate: schema.True(),
	}

	c := NewCompiler(reg)
	text, _, err := c.CompileSelect(sel)
	require.NoError(t, err)
	assert.Contains(t, text, `"t2"."author_id" = "t1"."id"`)
}
