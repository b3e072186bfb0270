// Package plan implements the selection planner: it turns a
// validate.ValidatedOperation for a known query or mutation into an
// AbstractSelect, an intermediate representation the SQL builder lowers to
// parameterized text. Relation traversal (many-to-one, one-to-many,
// transitive), ordering, and access-driven field masking all happen here;
// no SQL syntax leaks into this package.
package plan

import "github.com/exograph/exo-core/schema"

// Cardinality is a selection's row-shape: One for a unique/object result,
// Many for a list/collection result.
type Cardinality int

const (
	One Cardinality = iota
	Many
)

// ElementKind discriminates SelectionElement's tagged variant.
type ElementKind int

const (
	ElemPhysical ElementKind = iota
	ElemConstant
	ElemNull
	ElemObject
	ElemFunction
	ElemSubSelect
	ElemJsonExtract
	ElemJsonArrayExtract
)

// DistanceFunction names a pgvector distance operator.
type DistanceFunction int

const (
	DistanceL2 DistanceFunction = iota
	DistanceInnerProduct
	DistanceCosine
)

// Operator returns the pgvector operator text for d.
func (d DistanceFunction) Operator() string {
	switch d {
	case DistanceInnerProduct:
		return "<#>"
	case DistanceCosine:
		return "<=>"
	default:
		return "<->"
	}
}

// VectorDistance is ElemFunction's sole function payload: the distance
// between a column and a target vector, by the given operator.
type VectorDistance struct {
	Column   schema.PhysicalColumnPath
	Function DistanceFunction
	Target   schema.ConstValue
}

// SelectionElement is the tagged variant over what a single selected field
// compiles to. Only the field matching Kind is meaningful.
//
// ElemObject is modeled as an ordered slice of AliasedSelectionElement
// rather than a literal Go map, so declaration order survives into the SQL
// builder's jsonb_build_object argument list, preserving the declaration
// order GraphQL selections are entitled to — Go map iteration order is not
// stable.
type SelectionElement struct {
	Kind ElementKind

	Column FieldID // ElemPhysical

	Constant schema.ConstValue // ElemConstant

	Object []AliasedSelectionElement // ElemObject

	Function VectorDistance // ElemFunction

	RelationID RelationID         // ElemSubSelect
	SubSelect  *AbstractSelect // ElemSubSelect

	Source *SelectionElement // ElemJsonExtract / ElemJsonArrayExtract
	Path   []string          // ElemJsonExtract
	Key    string            // ElemJsonArrayExtract
}

// FieldID and RelationID alias the schema package's arena index types, kept
// as local names so plan's exported API reads in its own vocabulary.
type (
	FieldID    = schema.FieldID
	RelationID = schema.RelationID
)

func PhysicalElement(col FieldID) SelectionElement {
	return SelectionElement{Kind: ElemPhysical, Column: col}
}

func ConstantElement(v schema.ConstValue) SelectionElement {
	return SelectionElement{Kind: ElemConstant, Constant: v}
}

func NullElement() SelectionElement { return SelectionElement{Kind: ElemNull} }

func ObjectElement(fields []AliasedSelectionElement) SelectionElement {
	return SelectionElement{Kind: ElemObject, Object: fields}
}

func FunctionElement(fn VectorDistance) SelectionElement {
	return SelectionElement{Kind: ElemFunction, Function: fn}
}

func SubSelectElement(rel RelationID, sub *AbstractSelect) SelectionElement {
	return SelectionElement{Kind: ElemSubSelect, RelationID: rel, SubSelect: sub}
}

func JsonExtractElement(source SelectionElement, path []string) SelectionElement {
	return SelectionElement{Kind: ElemJsonExtract, Source: &source, Path: path}
}

func JsonArrayExtractElement(source SelectionElement, key string) SelectionElement {
	return SelectionElement{Kind: ElemJsonArrayExtract, Source: &source, Key: key}
}

// AliasedSelectionElement names one selected element by its output alias
// (the field's GraphQL alias if present, else its name).
type AliasedSelectionElement struct {
	Alias   string
	Element SelectionElement
}

// Selection is the JSON-aggregated projection of an AbstractSelect: an
// ordered list of aliased elements plus the row-shape they aggregate to.
type Selection struct {
	Elements    []AliasedSelectionElement
	Cardinality Cardinality
}

// AbstractSelect is the planner's output: a table identity, its JSON
// selection, predicate, ordering, and limit/offset — everything the SQL
// builder needs and nothing it doesn't.
type AbstractSelect struct {
	Table     schema.EntityID
	Selection Selection
	Predicate schema.AbstractPredicate
	OrderBy   AbstractOrderBy
	Limit     *int64
	Offset    *int64
}
