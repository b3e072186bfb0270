package access

import "github.com/exograph/exo-core/schema"

// ResidueKind discriminates Residue's three-way sum.
type ResidueKind int

const (
	ResidueTrue ResidueKind = iota
	ResidueFalse
	ResiduePredicate
)

// Residue is the result of solving an access expression: an unconditional
// True/False, or a residual row predicate that must be woven into SQL.
type Residue struct {
	Kind      ResidueKind
	Predicate schema.AbstractPredicate
}

func trueResidue() Residue  { return Residue{Kind: ResidueTrue} }
func falseResidue() Residue { return Residue{Kind: ResidueFalse} }
func predicateResidue(p schema.AbstractPredicate) Residue {
	return Residue{Kind: ResiduePredicate, Predicate: p}
}

// IsForbidden reports whether the residue is an unconditional denial.
func (r Residue) IsForbidden() bool { return r.Kind == ResidueFalse }

// ToPredicate lowers the residue to an AbstractPredicate, using the
// idempotent True()/False() constructors for the two unconditional cases.
func (r Residue) ToPredicate() schema.AbstractPredicate {
	switch r.Kind {
	case ResidueTrue:
		return schema.True()
	case ResidueFalse:
		return schema.False()
	default:
		return r.Predicate
	}
}

// RequestContext plays the role of privacy.Viewer: the authenticated
// caller's identity, roles, and any named context values an access
// expression's ContextLookup/ContextOperand may reference. It is kept as
// an interface so the HTTP/JWT layer (out of scope here) can supply its
// own implementation, exactly as privacy.WithViewer/ViewerFromContext
// decouple policy evaluation from authentication.
type RequestContext interface {
	GetID() string
	GetRoles() []string
	// Value looks up a named context value (e.g. "AuthContext.role"),
	// returning (value, false) if the name is not recognized.
	Value(name string) (schema.ConstValue, bool)
}

// Solve reduces the expression at id under ctx to one of the three
// residues: True, False, or a residual row predicate.
func Solve(arena *Arena, id ExprID, ctx RequestContext) Residue {
	return solve(arena, arena.Get(id), ctx)
}

func solve(arena *Arena, e Expr, ctx RequestContext) Residue {
	switch e.Kind {
	case ExprBoolLit:
		if e.Bool {
			return trueResidue()
		}
		return falseResidue()

	case ExprContextLookup:
		v, ok := ctx.Value(e.ContextName)
		if !ok {
			return falseResidue()
		}
		if b, ok := v.Bool(); ok && b {
			return trueResidue()
		}
		return falseResidue()

	case ExprRelational:
		return solveRelational(e, ctx)

	case ExprAnd:
		residues := make([]Residue, len(e.Children))
		for i, c := range e.Children {
			residues[i] = Solve(arena, c, ctx)
		}
		return andResidues(residues)

	case ExprOr:
		residues := make([]Residue, len(e.Children))
		for i, c := range e.Children {
			residues[i] = Solve(arena, c, ctx)
		}
		return orResidues(residues)

	case ExprNot:
		inner := Solve(arena, e.Operand, ctx)
		switch inner.Kind {
		case ResidueTrue:
			return falseResidue()
		case ResidueFalse:
			return trueResidue()
		default:
			return predicateResidue(schema.Not(inner.Predicate))
		}

	default:
		return falseResidue()
	}
}

func andResidues(residues []Residue) Residue {
	var preds []schema.AbstractPredicate
	for _, r := range residues {
		switch r.Kind {
		case ResidueFalse:
			return falseResidue()
		case ResidueTrue:
			// AND identity: drop.
		default:
			preds = append(preds, r.Predicate)
		}
	}
	if len(preds) == 0 {
		return trueResidue()
	}
	return predicateResidue(schema.And(preds...))
}

func orResidues(residues []Residue) Residue {
	var preds []schema.AbstractPredicate
	for _, r := range residues {
		switch r.Kind {
		case ResidueTrue:
			return trueResidue()
		case ResidueFalse:
			// OR identity: drop.
		default:
			preds = append(preds, r.Predicate)
		}
	}
	if len(preds) == 0 {
		return falseResidue()
	}
	return predicateResidue(schema.Or(preds...))
}

// resolveOperand reduces an ExprOperand to either a concrete constant
// (found=true, concrete=true) or a residual column reference (found=true,
// concrete=false). A named context lookup that misses reports found=false.
func resolveOperand(op ExprOperand, ctx RequestContext) (operand schema.Operand, concrete, found bool) {
	switch op.Kind {
	case OperandColumn:
		return schema.ColumnOperand(op.Column), false, true
	case OperandValue:
		return schema.ValueOperand(op.Value), true, true
	case OperandContext:
		v, ok := ctx.Value(op.ContextName)
		if !ok {
			return schema.Operand{}, false, false
		}
		return schema.ValueOperand(v), true, true
	default:
		return schema.Operand{}, false, false
	}
}

func solveRelational(e Expr, ctx RequestContext) Residue {
	left, leftConcrete, leftFound := resolveOperand(e.Left, ctx)
	right, rightConcrete, rightFound := resolveOperand(e.Right, ctx)
	// A named context lookup that doesn't resolve denies access rather than
	// panicking or silently treating the comparison as vacuously true.
	if !leftFound || !rightFound {
		return falseResidue()
	}
	if leftConcrete && rightConcrete {
		if evalConcrete(e.Op, left.Value, right.Value) {
			return trueResidue()
		}
		return falseResidue()
	}
	return predicateResidue(schema.Compare(e.Op, left, right))
}

// evalConcrete compares two fully-resolved constants per op.
func evalConcrete(op schema.PredicateOp, left, right schema.ConstValue) bool {
	cmp, ok := compareConst(left, right)
	if !ok {
		return false
	}
	switch op {
	case schema.OpEQ:
		return cmp == 0
	case schema.OpNEQ:
		return cmp != 0
	case schema.OpLT:
		return cmp < 0
	case schema.OpLTE:
		return cmp <= 0
	case schema.OpGT:
		return cmp > 0
	case schema.OpGTE:
		return cmp >= 0
	default:
		return false
	}
}

// compareConst returns (-1, 0, 1) comparing two ConstValues of the same
// underlying kind, or ok=false if they aren't comparable.
func compareConst(left, right schema.ConstValue) (int, bool) {
	if ls, ok := left.String(); ok {
		if rs, ok := right.String(); ok {
			switch {
			case ls < rs:
				return -1, true
			case ls > rs:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if li, ok := left.Int64(); ok {
		if ri, ok := right.Int64(); ok {
			switch {
			case li < ri:
				return -1, true
			case li > ri:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if lf, ok := left.Float64(); ok {
		if rf, ok := right.Float64(); ok {
			switch {
			case lf < rf:
				return -1, true
			case lf > rf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if lb, ok := left.Bool(); ok {
		if rb, ok := right.Bool(); ok {
			if lb == rb {
				return 0, true
			}
			return -1, true
		}
	}
	if left.IsNull() && right.IsNull() {
		return 0, true
	}
	return 0, false
}
