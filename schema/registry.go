package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema is the introspectable GraphQL wrapper around the compiled entity
// arena: query-root and mutation-root type names, entity definitions, and
// (eventually) a fragment registry supplied by the validator. It is
// read-only at request time — constructed once at startup and shared by
// every request without synchronization, since it is immutable after
// build.
type Schema struct {
	QueryRootName    string
	MutationRootName string
	Entities         []EntityType
}

// EntityByID looks up an entity by its arena id.
func (s *Schema) EntityByID(id EntityID) (*EntityType, bool) {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// EntityByName looks up an entity by its GraphQL type name.
func (s *Schema) EntityByName(name string) (*EntityType, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// ResolveRelation finds the ManyToOne field carrying relID and returns the
// "many" (child/owning) side's entity and foreign-key columns alongside the
// "one" (parent/referenced) side's entity. A shared RelationID pairs a
// ManyToOne field on the child with the corresponding OneToMany field on the
// parent, so this single lookup serves both SubSelect directions: the SQL
// compiler always correlates a nested select via the child's FK columns
// against the parent's primary key, regardless of which side's field
// produced the SubSelect.
func (s *Schema) ResolveRelation(relID RelationID) (child EntityID, selfColumns []string, parent EntityID, ok bool) {
	for i := range s.Entities {
		for j := range s.Entities[i].Fields {
			f := &s.Entities[i].Fields[j]
			if f.Relation.Tag == RelManyToOne && f.Relation.ManyToOneID == relID {
				return s.Entities[i].ID, f.Relation.SelfColumns, f.Relation.ForeignID, true
			}
		}
	}
	return 0, nil, 0, false
}

// PrimaryKeyColumns returns e's primary-key column names in field
// declaration order.
func (e *EntityType) PrimaryKeyColumns() []string {
	var cols []string
	for i := range e.Fields {
		if e.Fields[i].Relation.Tag == RelScalar && e.Fields[i].Relation.IsPK {
			cols = append(cols, e.Fields[i].Relation.Column)
		}
	}
	return cols
}

// PrimaryKeyFieldIDs returns e's primary-key fields' ids, in field
// declaration order, mirroring PrimaryKeyColumns for callers that need the
// field identity rather than its column name (e.g. to check whether an
// order-by already covers a given primary-key field).
func (e *EntityType) PrimaryKeyFieldIDs() []FieldID {
	var ids []FieldID
	for i := range e.Fields {
		if e.Fields[i].Relation.Tag == RelScalar && e.Fields[i].Relation.IsPK {
			ids = append(ids, e.Fields[i].ID)
		}
	}
	return ids
}

// fixture is the on-disk shape decoded by LoadFixture: a minimal
// hand-authored schema in lieu of the real model compiler, which is out of
// scope here. No other package or test in this module calls LoadFixture or
// ParseFixture.
type fixture struct {
	QueryRootName    string           `yaml:"queryRootName"`
	MutationRootName string           `yaml:"mutationRootName"`
	Entities         []fixtureEntity  `yaml:"entities"`
}

type fixtureEntity struct {
	ID     int             `yaml:"id"`
	Name   string          `yaml:"name"`
	Table  string          `yaml:"table"`
	Fields []fixtureField  `yaml:"fields"`
}

type fixtureField struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Column   string `yaml:"column"`
	IsPK     bool   `yaml:"isPK"`
	ReadOnly bool   `yaml:"readOnly"`
}

// LoadFixture decodes a minimal YAML schema fixture from path. Every field
// is modeled as a RelScalar relation; the result is a concrete Schema built
// without the real declarative-model compiler.
func LoadFixture(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML schema fixture from an in-memory buffer.
func ParseFixture(data []byte) (*Schema, error) {
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("schema: parse fixture: %w", err)
	}
	s := &Schema{
		QueryRootName:    fx.QueryRootName,
		MutationRootName: fx.MutationRootName,
	}
	for _, fe := range fx.Entities {
		entity := EntityType{
			ID:    EntityID(fe.ID),
			Name:  fe.Name,
			Table: fe.Table,
		}
		for _, ff := range fe.Fields {
			entity.Fields = append(entity.Fields, Field{
				ID:       FieldID(ff.ID),
				Name:     ff.Name,
				ReadOnly: ff.ReadOnly,
				Relation: Relation{
					Tag:    RelScalar,
					Column: ff.Column,
					IsPK:   ff.IsPK,
				},
			})
		}
		s.Entities = append(s.Entities, entity)
	}
	return s, nil
}
