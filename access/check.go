package access

import (
	"github.com/exograph/exo-core"
	"github.com/exograph/exo-core/schema"
)

// OperationKind is the mutation/query kind passed to CheckAccess, selecting
// which AccessBundle slots apply.
type OperationKind int

const (
	Retrieve OperationKind = iota
	Create
	Update
	Delete
)

// AccessCheckOutcome is CheckAccess's result: the standalone precheck
// predicate, the residual predicate to AND into the SQL WHERE, and
// the set of selected field names masked to NULL by field-level denial.
type AccessCheckOutcome struct {
	PrecheckPredicate  schema.AbstractPredicate
	EntityPredicate    schema.AbstractPredicate
	UnauthorizedFields []string
}

// CheckRetrieveAccess evaluates an entity's read expression; a False
// residue is an unconditional denial and is reported as an Authorization
// error rather than a residual predicate.
func CheckRetrieveAccess(arena *Arena, ctx RequestContext, entity string, readExpr ExprID) (schema.AbstractPredicate, error) {
	r := Solve(arena, readExpr, ctx)
	if r.IsForbidden() {
		return schema.AbstractPredicate{}, exocore.NewAuthorizationError(entity)
	}
	return r.ToPredicate(), nil
}

// CheckAccess evaluates an entity + selection against kind, producing the
// precheck predicate, the database-woven entity predicate, and the set of
// unauthorized fields to mask to NULL.
//
// Create has no "creation.database" bundle slot (new rows don't exist yet
// to filter), so its EntityPredicate is always True; Delete has no bundle
// slot of its own and reuses Update's precheck/database slots, the nearest
// analogous mutation-precondition contract the bundle defines.
func CheckAccess(arena *Arena, ctx RequestContext, entity *schema.EntityType, selection []string, kind OperationKind) AccessCheckOutcome {
	var precheckID, dbID ExprID
	switch kind {
	case Retrieve:
		dbID = entity.Access.Read
	case Create:
		precheckID = entity.Access.CreationPrecheck
	case Update:
		precheckID = entity.Access.UpdatePrecheck
		dbID = entity.Access.UpdateDatabase
	case Delete:
		precheckID = entity.Access.UpdatePrecheck
		dbID = entity.Access.UpdateDatabase
	}

	outcome := AccessCheckOutcome{
		PrecheckPredicate: Solve(arena, precheckID, ctx).ToPredicate(),
		EntityPredicate:   Solve(arena, dbID, ctx).ToPredicate(),
	}

	for _, name := range selection {
		field, ok := entity.FieldByName(name)
		if !ok {
			continue
		}
		if Solve(arena, field.Access.Read, ctx).IsForbidden() {
			outcome.UnauthorizedFields = append(outcome.UnauthorizedFields, name)
		}
	}
	return outcome
}
