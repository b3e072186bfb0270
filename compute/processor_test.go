package compute_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/compute"
	"github.com/exograph/exo-core/schema"
	"github.com/exograph/exo-core/validate"
)

type stubSubsystem struct {
	gotScriptPath string
	gotParent     map[string]any
	gotArgs       map[string]any
	gotSelection  []compute.SelectionDescriptor
	result        any
	err           error
}

func (s *stubSubsystem) ExecuteAndGet(ctx context.Context, scriptPath string, parent, args map[string]any, selection []compute.SelectionDescriptor) (any, error) {
	s.gotScriptPath = scriptPath
	s.gotParent = parent
	s.gotArgs = args
	s.gotSelection = selection
	return s.result, s.err
}

func fullNameEntity(arena *access.Arena) *schema.EntityType {
	return &schema.EntityType{
		ID:   1,
		Name: "User",
		Fields: []schema.Field{
			{ID: 1, Name: "id", Relation: schema.Relation{Tag: schema.RelScalar, Column: "id", IsPK: true}},
			{ID: 2, Name: "firstName", Relation: schema.Relation{Tag: schema.RelScalar, Column: "first_name"}},
			{
				ID:   3,
				Name: "fullName",
				Relation: schema.Relation{
					Tag:          schema.RelComputed,
					SubsystemID:  "deno",
					FunctionName: "fullName",
					ScriptID:     "user-computed",
					Dependencies: []string{"firstName", "lastName"},
				},
			},
		},
	}
}

func TestPostProcessSplicesComputedFieldResult(t *testing.T) {
	arena := access.NewArena()
	entity := fullNameEntity(arena)

	registry := compute.NewRegistry()
	stub := &stubSubsystem{result: "Ada Lovelace"}
	registry.Register("deno", stub)
	scripts := compute.MapScriptSource{"user-computed": "/scripts/user.ts"}

	proc := compute.NewProcessor(registry, scripts, arena)
	row := map[string]any{
		"id":        float64(1),
		"firstName": "Ada",
		"fullName":  map[string]any{"firstName": "Ada", "lastName": "Lovelace"},
	}
	fields := []validate.ValidatedField{
		{Name: "id"},
		{Name: "firstName"},
		{Name: "fullName"},
	}

	require.True(t, compute.NeedsPostProcessing(&schema.Schema{Entities: []schema.EntityType{*entity}}, entity, fields))

	err := proc.PostProcess(context.Background(), &access.SimpleRequestContext{}, &schema.Schema{Entities: []schema.EntityType{*entity}}, entity, fields, row)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", row["fullName"])
	assert.Equal(t, "/scripts/user.ts", stub.gotScriptPath)
	assert.Equal(t, "Ada", stub.gotParent["firstName"])
	assert.Equal(t, "Lovelace", stub.gotParent["lastName"])
	assert.NotContains(t, stub.gotParent, "fullName")
}

func TestPostProcessMasksUnauthorizedComputedField(t *testing.T) {
	arena := access.NewArena()
	denyExpr := arena.Add(access.BoolLit(false))
	entity := fullNameEntity(arena)
	entity.Fields[2].Access.Read = denyExpr

	registry := compute.NewRegistry()
	stub := &stubSubsystem{result: "should not be called"}
	registry.Register("deno", stub)
	scripts := compute.MapScriptSource{"user-computed": "/scripts/user.ts"}

	proc := compute.NewProcessor(registry, scripts, arena)
	row := map[string]any{
		"id":       float64(1),
		"fullName": map[string]any{"firstName": "Ada", "lastName": "Lovelace"},
	}
	fields := []validate.ValidatedField{{Name: "id"}, {Name: "fullName"}}

	err := proc.PostProcess(context.Background(), &access.SimpleRequestContext{}, &schema.Schema{Entities: []schema.EntityType{*entity}}, entity, fields, row)
	require.NoError(t, err)

	_, present := row["fullName"]
	assert.False(t, present)
	assert.Empty(t, stub.gotScriptPath)
}

func TestPostProcessUnsupportedSubsystemFails(t *testing.T) {
	arena := access.NewArena()
	entity := fullNameEntity(arena)
	entity.Fields[2].Relation.SubsystemID = "python"

	proc := compute.NewProcessor(compute.NewRegistry(), compute.MapScriptSource{}, arena)
	row := map[string]any{"fullName": map[string]any{}}
	fields := []validate.ValidatedField{{Name: "fullName"}}

	err := proc.PostProcess(context.Background(), &access.SimpleRequestContext{}, &schema.Schema{Entities: []schema.EntityType{*entity}}, entity, fields, row)
	require.Error(t, err)
}

func TestPostProcessBatchesComputedFieldAcrossOneToManySiblings(t *testing.T) {
	arena := access.NewArena()
	post := fullNameEntity(arena)
	post.ID = 2
	post.Name = "Post"

	author := &schema.EntityType{
		ID:   3,
		Name: "Author",
		Fields: []schema.Field{
			{ID: 1, Name: "id", Relation: schema.Relation{Tag: schema.RelScalar, Column: "id", IsPK: true}},
			{
				ID:   2,
				Name: "posts",
				Relation: schema.Relation{
					Tag:                schema.RelOneToMany,
					OneToManyForeignID: post.ID,
				},
			},
		},
	}

	registry := compute.NewRegistry()
	stub := &stubSubsystem{result: "Ada Lovelace"}
	registry.Register("deno", stub)
	scripts := compute.MapScriptSource{"user-computed": "/scripts/user.ts"}

	proc := compute.NewProcessor(registry, scripts, arena)
	row := map[string]any{
		"id": float64(3),
		"posts": []any{
			map[string]any{"id": float64(10), "firstName": "Ada", "fullName": map[string]any{"firstName": "Ada", "lastName": "Lovelace"}},
			map[string]any{"id": float64(11), "firstName": "Grace", "fullName": map[string]any{"firstName": "Grace", "lastName": "Hopper"}},
		},
	}
	fields := []validate.ValidatedField{
		{Name: "id"},
		{Name: "posts", Subfields: []validate.ValidatedField{
			{Name: "id"}, {Name: "firstName"}, {Name: "fullName"},
		}},
	}

	sch := &schema.Schema{Entities: []schema.EntityType{*author, *post}}
	err := proc.PostProcess(context.Background(), &access.SimpleRequestContext{}, sch, author, fields, row)
	require.NoError(t, err)

	posts := row["posts"].([]any)
	assert.Equal(t, "Ada Lovelace", posts[0].(map[string]any)["fullName"])
	assert.Equal(t, "Ada Lovelace", posts[1].(map[string]any)["fullName"])
}

func TestCleanupDropsUnselectedKeysForJSONEmbeddedRepresentation(t *testing.T) {
	arena := access.NewArena()
	entity := &schema.EntityType{
		ID:             2,
		Name:           "Address",
		Representation: schema.RepJSONEmbedded,
		Fields: []schema.Field{
			{ID: 1, Name: "street", Relation: schema.Relation{Tag: schema.RelScalar, Column: "street"}},
			{ID: 2, Name: "city", Relation: schema.Relation{Tag: schema.RelScalar, Column: "city"}},
		},
	}
	proc := compute.NewProcessor(compute.NewRegistry(), compute.MapScriptSource{}, arena)
	row := map[string]any{"street": "Main St", "city": "Springfield", "zip": "00000"}
	fields := []validate.ValidatedField{{Name: "street"}}

	err := proc.PostProcess(context.Background(), &access.SimpleRequestContext{}, &schema.Schema{Entities: []schema.EntityType{*entity}}, entity, fields, row)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"street": "Main St"}, row)
}
