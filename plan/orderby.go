package plan

import (
	"fmt"
	"strings"

	"github.com/exograph/exo-core"
	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/schema"
)

// OrderDirection is an order-by term's sort direction.
type OrderDirection int

const (
	OrderAsc OrderDirection = iota
	OrderDesc
)

// OrderTermKind discriminates OrderByTerm's tagged variant.
type OrderTermKind int

const (
	OrderTermScalar OrderTermKind = iota
	OrderTermVector
)

// OrderByTerm is one term of an AbstractOrderBy: a plain column direction,
// or a vector-distance ordering (coerced from the `{distanceTo, order}`
// object shape a vector order-by argument takes).
type OrderByTerm struct {
	Kind      OrderTermKind
	Path      schema.PhysicalColumnPath
	Direction OrderDirection

	VectorFunction DistanceFunction // OrderTermVector
	VectorTarget   schema.ConstValue
}

// AbstractOrderBy is an ordered, left-to-right list of order-by terms —
// concatenation of order-by arguments is associative.
type AbstractOrderBy struct {
	Terms []OrderByTerm
}

// ConcatOrderBy concatenates a then b, preserving declaration order.
func ConcatOrderBy(a, b AbstractOrderBy) AbstractOrderBy {
	out := make([]OrderByTerm, 0, len(a.Terms)+len(b.Terms))
	out = append(out, a.Terms...)
	out = append(out, b.Terms...)
	return AbstractOrderBy{Terms: out}
}

func parseDirection(s string) OrderDirection {
	if strings.EqualFold(s, "DESC") {
		return OrderDesc
	}
	return OrderAsc
}

// objectField is one (name, value) pair of a GraphQL input-object argument,
// in declaration order. validate.fromAny encodes an object argument as a
// ConstValue list of 2-element lists (key, value) since ConstValue has no
// dedicated object kind; asObjectFields reverses that encoding.
type objectField struct {
	Name  string
	Value schema.ConstValue
}

func asObjectFields(v schema.ConstValue) ([]objectField, bool) {
	list, ok := v.List()
	if !ok {
		return nil, false
	}
	out := make([]objectField, 0, len(list))
	for _, pair := range list {
		kv, ok := pair.List()
		if !ok || len(kv) != 2 {
			return nil, false
		}
		name, ok := kv[0].String()
		if !ok {
			return nil, false
		}
		out = append(out, objectField{Name: name, Value: kv[1]})
	}
	return out, true
}

func asObjectMap(v schema.ConstValue) (map[string]schema.ConstValue, bool) {
	fields, ok := asObjectFields(v)
	if !ok {
		return nil, false
	}
	m := make(map[string]schema.ConstValue, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m, true
}

// EnsurePrimaryKeyTiebreak appends, in primary-key declaration order, a
// trailing ASC term for every one of entity's primary-key fields not
// already covered by a direct (non-relation-hop) scalar term earlier in
// orderBy. A paginated collection query ordered only by a non-unique
// column has no stable row order between pages once ties are possible;
// appending the primary key as a final tiebreaker guarantees one without
// disturbing any ordering the caller already asked for.
func EnsurePrimaryKeyTiebreak(orderBy AbstractOrderBy, entity *schema.EntityType) AbstractOrderBy {
	covered := make(map[schema.FieldID]bool)
	for _, term := range orderBy.Terms {
		if term.Kind != OrderTermScalar {
			continue
		}
		if term.Path.Origin != entity.ID || len(term.Path.Links) != 1 {
			continue
		}
		link := term.Path.Links[0]
		if link.Kind == schema.LinkLeaf {
			covered[link.FieldID] = true
		}
	}

	out := orderBy
	for _, id := range entity.PrimaryKeyFieldIDs() {
		if covered[id] {
			continue
		}
		out.Terms = append(out.Terms, OrderByTerm{
			Kind:      OrderTermScalar,
			Path:      schema.NewColumnPath(entity.ID, schema.LeafLink(id)),
			Direction: OrderAsc,
		})
	}
	return out
}

// buildOrderBy recursively decomposes a composite order-by argument.
// prefix is the column path accumulated so far from the query's root
// entity; it starts with no links and grows by one RelationLink per
// many-to-one hop recursed into. Traversing a relation whose own read
// access doesn't reduce to unconditional True fails Authorization rather
// than silently filtering; a residual predicate could in principle be
// carried along instead, but this implementation takes the stricter
// reading literally — a relation hop must reduce to True unconditionally
// or the whole order-by fails Authorization — applying it to every
// relation hop rather than deferring to a row predicate.
func buildOrderBy(reg *schema.Schema, arena *access.Arena, rc access.RequestContext, prefix schema.PhysicalColumnPath, entity *schema.EntityType, arg schema.ConstValue) (AbstractOrderBy, error) {
	fields, ok := asObjectFields(arg)
	if !ok {
		return AbstractOrderBy{}, fmt.Errorf("plan: malformed order-by argument for %s", entity.Name)
	}

	var out AbstractOrderBy
	for _, of := range fields {
		field, ok := entity.FieldByName(of.Name)
		if !ok {
			return AbstractOrderBy{}, fmt.Errorf("plan: order-by names unknown field %q on %s", of.Name, entity.Name)
		}

		if field.Relation.Tag == schema.RelManyToOne {
			residue := access.Solve(arena, field.Access.Read, rc)
			if residue.Kind != access.ResidueTrue {
				return AbstractOrderBy{}, exocore.NewFieldAuthorizationError(entity.Name, of.Name)
			}
			target, ok := reg.EntityByID(field.Relation.ForeignID)
			if !ok {
				return AbstractOrderBy{}, fmt.Errorf("plan: unknown target entity for relation %q", of.Name)
			}
			childPrefix, err := prefix.Extend(schema.RelationLink(field.Relation.ManyToOneID))
			if err != nil {
				return AbstractOrderBy{}, err
			}
			sub, err := buildOrderBy(reg, arena, rc, childPrefix, target, of.Value)
			if err != nil {
				return AbstractOrderBy{}, err
			}
			out = ConcatOrderBy(out, sub)
			continue
		}

		path, err := prefix.Extend(schema.LeafLink(field.ID))
		if err != nil {
			return AbstractOrderBy{}, err
		}

		if nested, ok := asObjectMap(of.Value); ok {
			rawDistTo, hasDist := nested["distanceTo"]
			if !hasDist {
				return AbstractOrderBy{}, fmt.Errorf("plan: vector order-by for %q missing distanceTo", of.Name)
			}
			distTo, err := coerceVectorLiteral(rawDistTo)
			if err != nil {
				return AbstractOrderBy{}, fmt.Errorf("plan: vector order-by for %q: %w", of.Name, err)
			}
			dir := OrderAsc
			if d, ok := nested["order"]; ok {
				if s, ok := d.String(); ok {
					dir = parseDirection(s)
				}
			}
			out.Terms = append(out.Terms, OrderByTerm{
				Kind: OrderTermVector, Path: path, Direction: dir,
				VectorFunction: DistanceL2, VectorTarget: distTo,
			})
			continue
		}

		s, ok := of.Value.String()
		if !ok {
			return AbstractOrderBy{}, fmt.Errorf("plan: order-by %q must be ASC, DESC, or a vector-distance object", of.Name)
		}
		out.Terms = append(out.Terms, OrderByTerm{Kind: OrderTermScalar, Path: path, Direction: parseDirection(s)})
	}
	return out, nil
}
