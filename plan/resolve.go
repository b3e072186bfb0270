package plan

import (
	"context"
	"fmt"
	"sort"

	"github.com/exograph/exo-core"
	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/schema"
	"github.com/exograph/exo-core/validate"
)

// reservedArgs names collection-query arguments that aren't scalar-equality
// predicate parameters.
var reservedArgs = map[string]bool{"orderBy": true, "limit": true, "offset": true}

// SelectResolver plans a single validated field into an AbstractSelect. It
// is the narrower of two resolver traits; OperationResolver is its
// blanket-implemented generalization.
type SelectResolver interface {
	ResolveSelect(ctx context.Context, rc access.RequestContext, field validate.ValidatedField) (*AbstractSelect, error)
}

// OperationResolver is the general resolver trait: "Resolve" for any
// operation kind, of which SelectResolver's "ResolveSelect" is the common
// case. AsOperationResolver is the blanket implementation that
// adapts any SelectResolver, the same role a default trait method plays in
// languages that support one directly.
type OperationResolver interface {
	Resolve(ctx context.Context, rc access.RequestContext, field validate.ValidatedField) (*AbstractSelect, error)
}

type selectResolverAdaptor struct{ SelectResolver }

func (a selectResolverAdaptor) Resolve(ctx context.Context, rc access.RequestContext, field validate.ValidatedField) (*AbstractSelect, error) {
	return a.ResolveSelect(ctx, rc, field)
}

// AsOperationResolver adapts r to the general OperationResolver interface.
func AsOperationResolver(r SelectResolver) OperationResolver {
	return selectResolverAdaptor{r}
}

// Catalog holds one resolver per entity for both query shapes (unique and
// collection), letting relation traversal (many-to-one, one-to-many,
// transitive) recurse back into the planner without each resolver needing
// its own reference to every other entity's resolver.
type Catalog struct {
	Schema *schema.Schema
	Arena  *access.Arena

	unique     map[schema.EntityID]*UniqueQueryResolver
	collection map[schema.EntityID]*CollectionQueryResolver
}

// NewCatalog builds a resolver for every entity in reg.
func NewCatalog(reg *schema.Schema, arena *access.Arena) *Catalog {
	c := &Catalog{
		Schema:     reg,
		Arena:      arena,
		unique:     make(map[schema.EntityID]*UniqueQueryResolver),
		collection: make(map[schema.EntityID]*CollectionQueryResolver),
	}
	for i := range reg.Entities {
		e := &reg.Entities[i]
		c.unique[e.ID] = &UniqueQueryResolver{entity: e, catalog: c}
		c.collection[e.ID] = &CollectionQueryResolver{entity: e, catalog: c}
	}
	return c
}

// UniqueQuery returns id's unique-by-pk query resolver.
func (c *Catalog) UniqueQuery(id schema.EntityID) *UniqueQueryResolver { return c.unique[id] }

// CollectionQuery returns id's collection query resolver.
func (c *Catalog) CollectionQuery(id schema.EntityID) *CollectionQueryResolver {
	return c.collection[id]
}

// planEntitySelect plans a correlated sub-select for a relation traversal
// (many-to-one, one-to-many, and each hop of a transitive chain): the
// entity's own read predicate applies, but no caller arguments do — the
// correlation to the parent row is the SQL builder's job, keyed by the
// relation id the caller wraps this select in (SubSelectElement).
func (c *Catalog) planEntitySelect(ctx context.Context, rc access.RequestContext, entity *schema.EntityType, fields []validate.ValidatedField, card Cardinality) (*AbstractSelect, error) {
	residue := access.Solve(c.Arena, entity.Access.Read, rc)
	if residue.IsForbidden() {
		return nil, exocore.NewAuthorizationError(entity.Name)
	}
	return c.computeSelect(ctx, rc, entity, fields, access.Retrieve, residue.ToPredicate(), card, AbstractOrderBy{}, nil, nil)
}

// UniqueQueryResolver resolves a root-level "by primary key" query (spec
// §4.2, "Unique query").
type UniqueQueryResolver struct {
	entity  *schema.EntityType
	catalog *Catalog
}

func (r *UniqueQueryResolver) ResolveSelect(ctx context.Context, rc access.RequestContext, field validate.ValidatedField) (*AbstractSelect, error) {
	residue := access.Solve(r.catalog.Arena, r.entity.Access.Read, rc)
	// A relation-restricted unique query (P_read != True) still executes —
	// its row predicate is ANDed in below — but a hypothetical richer
	// argument schema that let pk predicates traverse relations would need
	// to consult this flag before doing so. This
	// resolver only accepts scalar pk-equality arguments, so there is no
	// such traversal to guard here; hasRelationRestrictions is recorded
	// for that reason alone.
	hasRelationRestrictions := residue.Kind != access.ResidueTrue
	_ = hasRelationRestrictions

	basePredicate, err := buildArgPredicate(r.entity.ID, r.entity, field.Arguments, nil)
	if err != nil {
		return nil, err
	}
	pred := schema.And(basePredicate, residue.ToPredicate())

	return r.catalog.computeSelect(ctx, rc, r.entity, field.Subfields, access.Retrieve, pred, One, AbstractOrderBy{}, nil, nil)
}

// CollectionQueryResolver resolves a root-level collection query (spec
// §4.2, "Collection query").
type CollectionQueryResolver struct {
	entity  *schema.EntityType
	catalog *Catalog
}

func (r *CollectionQueryResolver) ResolveSelect(ctx context.Context, rc access.RequestContext, field validate.ValidatedField) (*AbstractSelect, error) {
	residue := access.Solve(r.catalog.Arena, r.entity.Access.Read, rc)

	basePredicate, err := buildArgPredicate(r.entity.ID, r.entity, field.Arguments, reservedArgs)
	if err != nil {
		return nil, err
	}

	var orderBy AbstractOrderBy
	if arg, ok := field.Arguments["orderBy"]; ok {
		orderBy, err = buildOrderBy(r.catalog.Schema, r.catalog.Arena, rc, schema.PhysicalColumnPath{Origin: r.entity.ID}, r.entity, arg)
		if err != nil {
			return nil, err
		}
	}
	orderBy = EnsurePrimaryKeyTiebreak(orderBy, r.entity)

	pred := schema.And(basePredicate, residue.ToPredicate())

	limit := int64Arg(field.Arguments, "limit")
	offset := int64Arg(field.Arguments, "offset")

	return r.catalog.computeSelect(ctx, rc, r.entity, field.Subfields, access.Retrieve, pred, Many, orderBy, limit, offset)
}

// computeSelect is the common finalization both query shapes share (spec
// §4.2, "compute_select"): run the access checker, mask unauthorized
// fields to NULL, and resolve every remaining field to a SelectionElement
// in declaration order.
func (c *Catalog) computeSelect(ctx context.Context, rc access.RequestContext, entity *schema.EntityType, fields []validate.ValidatedField, kind access.OperationKind, basePredicate schema.AbstractPredicate, card Cardinality, orderBy AbstractOrderBy, limit, offset *int64) (*AbstractSelect, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	outcome := access.CheckAccess(c.Arena, rc, entity, names, kind)
	pred := schema.And(basePredicate, outcome.EntityPredicate)

	elements := make([]AliasedSelectionElement, 0, len(fields))
	for _, f := range fields {
		alias := f.Alias
		if alias == "" {
			alias = f.Name
		}
		elem, err := c.resolveFieldElement(ctx, rc, entity, f, outcome)
		if err != nil {
			return nil, err
		}
		elements = append(elements, AliasedSelectionElement{Alias: alias, Element: elem})
	}

	return &AbstractSelect{
		Table:     entity.ID,
		Selection: Selection{Elements: elements, Cardinality: card},
		Predicate: pred,
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func unauthorized(outcome access.AccessCheckOutcome, name string) bool {
	for _, f := range outcome.UnauthorizedFields {
		if f == name {
			return true
		}
	}
	return false
}

func (c *Catalog) resolveFieldElement(ctx context.Context, rc access.RequestContext, entity *schema.EntityType, f validate.ValidatedField, outcome access.AccessCheckOutcome) (SelectionElement, error) {
	if f.Name == "__typename" {
		return ConstantElement(schema.StringValue(entity.Name)), nil
	}
	if unauthorized(outcome, f.Name) {
		return NullElement(), nil
	}

	if pf, ok := entity.PseudoFieldByName(f.Name); ok {
		return c.resolvePseudoField(entity, f, pf)
	}

	field, ok := entity.FieldByName(f.Name)
	if !ok {
		return SelectionElement{}, fmt.Errorf("plan: %s has no field %q", entity.Name, f.Name)
	}

	switch field.Relation.Tag {
	case schema.RelScalar:
		return PhysicalElement(field.ID), nil

	case schema.RelManyToOne:
		target, ok := c.Schema.EntityByID(field.Relation.ForeignID)
		if !ok {
			return SelectionElement{}, fmt.Errorf("plan: unknown target entity for relation %q", f.Name)
		}
		nested, err := c.planEntitySelect(ctx, rc, target, f.Subfields, One)
		if err != nil {
			return SelectionElement{}, err
		}
		return SubSelectElement(field.Relation.ManyToOneID, nested), nil

	case schema.RelOneToMany:
		target, ok := c.Schema.EntityByID(field.Relation.OneToManyForeignID)
		if !ok {
			return SelectionElement{}, fmt.Errorf("plan: unknown target entity for relation %q", f.Name)
		}
		card := Many
		if field.Relation.OneToManyCard == schema.Optional {
			card = One
		}
		nested, err := c.planEntitySelect(ctx, rc, target, f.Subfields, card)
		if err != nil {
			return SelectionElement{}, err
		}
		return SubSelectElement(field.Relation.OneToManyID, nested), nil

	case schema.RelComputed:
		if len(field.Relation.Dependencies) == 0 {
			return NullElement(), nil
		}
		deps := make([]AliasedSelectionElement, 0, len(field.Relation.Dependencies))
		for _, depName := range field.Relation.Dependencies {
			depField, ok := entity.FieldByName(depName)
			if !ok {
				return SelectionElement{}, fmt.Errorf("plan: computed field %q declares unknown dependency %q", f.Name, depName)
			}
			deps = append(deps, AliasedSelectionElement{Alias: depName, Element: PhysicalElement(depField.ID)})
		}
		return ObjectElement(deps), nil

	case schema.RelEmbedded:
		return SelectionElement{}, fmt.Errorf("plan: %s.%s is embedded and cannot be the target of a sub-select", entity.Name, f.Name)

	case schema.RelTransitive:
		return c.expandTransitive(ctx, rc, field, f.Subfields)

	default:
		return SelectionElement{}, fmt.Errorf("plan: %s.%s has an unrecognized relation kind", entity.Name, f.Name)
	}
}

func (c *Catalog) resolvePseudoField(entity *schema.EntityType, f validate.ValidatedField, pf *schema.PseudoField) (SelectionElement, error) {
	switch pf.Kind {
	case schema.PseudoVectorDistance:
		column, ok := entity.FieldByID(pf.VectorColumnID)
		if !ok {
			return SelectionElement{}, fmt.Errorf("plan: vector pseudo-field %q has no backing column", f.Name)
		}
		raw, ok := f.Arguments["to"]
		if !ok {
			return SelectionElement{}, fmt.Errorf("plan: vector pseudo-field %q requires a \"to\" argument", f.Name)
		}
		target, err := coerceVectorLiteral(raw)
		if err != nil {
			return SelectionElement{}, fmt.Errorf("plan: vector pseudo-field %q: %w", f.Name, err)
		}
		path := schema.NewColumnPath(entity.ID, schema.LeafLink(column.ID))
		return FunctionElement(VectorDistance{Column: path, Function: DistanceL2, Target: target}), nil

	case schema.PseudoAggregate:
		// Aggregates are only legal over Unbounded one-to-many relations;
		// the arena-level relation metadata needed to emit a
		// COUNT/aggregate AbstractSelect lives on the Field whose
		// OneToManyID matches pf.AggregateRelationID, not on the
		// pseudo-field itself, so resolve it the same way a SubSelect
		// target would be resolved.
		for i := range entity.Fields {
			rel := entity.Fields[i].Relation
			if rel.Tag == schema.RelOneToMany && rel.OneToManyID == pf.AggregateRelationID {
				target, ok := c.Schema.EntityByID(rel.OneToManyForeignID)
				if !ok {
					return SelectionElement{}, fmt.Errorf("plan: aggregate pseudo-field %q has no target entity", f.Name)
				}
				nested := &AbstractSelect{
					Table:     target.ID,
					Selection: Selection{Cardinality: Many},
					Predicate: schema.True(),
				}
				return SubSelectElement(rel.OneToManyID, nested), nil
			}
		}
		return SelectionElement{}, fmt.Errorf("plan: aggregate pseudo-field %q names an unknown relation", f.Name)

	default:
		return SelectionElement{}, fmt.Errorf("plan: %s.%s has an unrecognized pseudo-field kind", entity.Name, f.Name)
	}
}

func buildArgPredicate(origin schema.EntityID, entity *schema.EntityType, args map[string]schema.ConstValue, reserved map[string]bool) (schema.AbstractPredicate, error) {
	names := make([]string, 0, len(args))
	for name := range args {
		if reserved[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var preds []schema.AbstractPredicate
	for _, name := range names {
		field, ok := entity.FieldByName(name)
		if !ok || field.Relation.Tag != schema.RelScalar {
			return schema.AbstractPredicate{}, fmt.Errorf("plan: %q is not a scalar field of %s", name, entity.Name)
		}
		path := schema.NewColumnPath(origin, schema.LeafLink(field.ID))
		preds = append(preds, schema.Compare(schema.OpEQ, schema.ColumnOperand(path), schema.ValueOperand(args[name])))
	}
	return schema.And(preds...), nil
}

func int64Arg(args map[string]schema.ConstValue, name string) *int64 {
	v, ok := args[name]
	if !ok {
		return nil
	}
	n, ok := v.Int64()
	if !ok {
		return nil
	}
	return &n
}
