// Package access implements the declarative access solver: a shared,
// append-only arena of AccessPredicateExpression values and the single
// recursive reducer that solves one under a request context down to one of
// three residues (True, False, or a residual row predicate).
//
// Generalized from a privacy package that evaluates an imperative
// Allow/Deny/Skip rule chain over velox.Query/velox.Mutation. This
// module's access bundles are declarative expression trees, so the
// chain-of-rules shape doesn't fit; the arena/residue shape below keeps
// that package's spirit (RequestContext plays the role of privacy.Viewer;
// see viewer.go's WithRequestContext/RequestContextFromContext) but reduces expressions
// rather than running rule functions.
package access

import "github.com/exograph/exo-core/schema"

// ExprID indexes the Arena. It is the same type as schema.ExprID (the
// AccessBundle slot type) so a bundle slot can be passed straight to Solve.
type ExprID = schema.ExprID

// ExprKind discriminates Expr's tagged variant.
type ExprKind int

const (
	ExprBoolLit ExprKind = iota
	ExprRelational
	ExprAnd
	ExprOr
	ExprNot
	ExprContextLookup
)

// OperandKind discriminates an ExprOperand's tagged variant.
type OperandKind int

const (
	OperandColumn OperandKind = iota
	OperandValue
	OperandContext
)

// ExprOperand is one side of a Relational expression: a row column, a
// literal constant, or a named lookup into the RequestContext.
type ExprOperand struct {
	Kind        OperandKind
	Column      schema.PhysicalColumnPath
	Value       schema.ConstValue
	ContextName string
}

func ColumnOperand(p schema.PhysicalColumnPath) ExprOperand {
	return ExprOperand{Kind: OperandColumn, Column: p}
}
func ValueOperand(v schema.ConstValue) ExprOperand { return ExprOperand{Kind: OperandValue, Value: v} }
func ContextOperand(name string) ExprOperand {
	return ExprOperand{Kind: OperandContext, ContextName: name}
}

// Expr is the tagged variant stored in the Arena.
type Expr struct {
	Kind ExprKind

	Bool bool // ExprBoolLit

	Op    schema.PredicateOp // ExprRelational
	Left  ExprOperand
	Right ExprOperand

	Children []ExprID // ExprAnd / ExprOr

	Operand ExprID // ExprNot

	ContextName string // ExprContextLookup
}

// BoolLit builds a boolean-literal expression.
func BoolLit(b bool) Expr { return Expr{Kind: ExprBoolLit, Bool: b} }

// Relational builds a comparison expression between two operands.
func Relational(op schema.PredicateOp, left, right ExprOperand) Expr {
	return Expr{Kind: ExprRelational, Op: op, Left: left, Right: right}
}

// And builds a conjunction of the given child expressions.
func And(children ...ExprID) Expr { return Expr{Kind: ExprAnd, Children: children} }

// Or builds a disjunction of the given child expressions.
func Or(children ...ExprID) Expr { return Expr{Kind: ExprOr, Children: children} }

// Negate builds a negation of the given child expression.
func Negate(child ExprID) Expr { return Expr{Kind: ExprNot, Operand: child} }

// ContextLookup builds a boolean-valued lookup of a named context value
// (e.g. a flag like `AuthContext.superuser`).
func ContextLookup(name string) Expr { return Expr{Kind: ExprContextLookup, ContextName: name} }

// Arena is the process-wide, append-only slab of Expr values, indexed by
// ExprID. It is read-only after the schema is built; concurrent readers
// need no synchronization once it is built.
//
// Index 0 is pre-seeded with BoolLit(true) so a zero-value ExprID (an
// AccessBundle slot that was never populated, e.g. Create's non-existent
// "creation.database" slot) resolves to an always-true expression rather
// than requiring every caller to special-case the zero value.
type Arena struct {
	exprs []Expr
}

// NewArena returns an Arena with its reserved always-true slot at index 0.
func NewArena() *Arena {
	a := &Arena{}
	a.Add(BoolLit(true))
	return a
}

// Add appends e to the arena and returns its id.
func (a *Arena) Add(e Expr) ExprID {
	a.exprs = append(a.exprs, e)
	return ExprID(len(a.exprs) - 1)
}

// Get returns the expression stored at id.
func (a *Arena) Get(id ExprID) Expr {
	return a.exprs[id]
}

// Len returns the number of expressions stored in the arena.
func (a *Arena) Len() int { return len(a.exprs) }
