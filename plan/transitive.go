package plan

import (
	"context"
	"fmt"

	"github.com/exograph/exo-core"
	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/schema"
	"github.com/exograph/exo-core/validate"
)

const transitiveValueAlias = "__transitive_value"

// expandTransitive implements transitive relation expansion: given
// field's non-empty step list, build the chain bottom-up. The bottommost
// step resolves the caller's actual subfields directly as a SubSelect; each
// step above wraps the accumulated element under the sentinel alias
// __transitive_value inside a synthetic one-field selection, re-wraps that
// as a SubSelect over the step's own relation, and extracts the sentinel
// back out — via JsonArrayExtract for an Unbounded one-to-many step, else
// JsonExtract.
func (c *Catalog) expandTransitive(ctx context.Context, rc access.RequestContext, field *schema.Field, subfields []validate.ValidatedField) (SelectionElement, error) {
	steps := field.Relation.Steps
	if len(steps) == 0 {
		return SelectionElement{}, fmt.Errorf("plan: transitive field %q declares no steps", field.Name)
	}

	last := steps[len(steps)-1]
	lastTarget, ok := c.Schema.EntityByID(last.TargetEntityID)
	if !ok {
		return SelectionElement{}, fmt.Errorf("plan: transitive step target entity not found for %q", field.Name)
	}
	nested, err := c.planEntitySelect(ctx, rc, lastTarget, subfields, stepCardinality(last))
	if err != nil {
		return SelectionElement{}, err
	}
	cur := SubSelectElement(last.RelationID, nested)

	for i := len(steps) - 2; i >= 0; i-- {
		step := steps[i]
		target, ok := c.Schema.EntityByID(step.TargetEntityID)
		if !ok {
			return SelectionElement{}, fmt.Errorf("plan: transitive step target entity not found for %q", field.Name)
		}

		residue := access.Solve(c.Arena, target.Access.Read, rc)
		if residue.IsForbidden() {
			return SelectionElement{}, exocore.NewAuthorizationError(target.Name)
		}

		wrapCard := stepCardinality(step)
		hopSelect := &AbstractSelect{
			Table: target.ID,
			Selection: Selection{
				Elements:    []AliasedSelectionElement{{Alias: transitiveValueAlias, Element: cur}},
				Cardinality: wrapCard,
			},
			Predicate: residue.ToPredicate(),
		}
		subSelectElem := SubSelectElement(step.RelationID, hopSelect)

		if step.Cardinality == schema.Unbounded {
			cur = JsonArrayExtractElement(subSelectElem, transitiveValueAlias)
		} else {
			cur = JsonExtractElement(subSelectElem, []string{transitiveValueAlias})
		}
	}

	return cur, nil
}

// stepCardinality is Many only for an Unbounded one-to-many step, matching
// the "cardinality is Many only for unbounded one-to-many steps" rule.
func stepCardinality(step schema.TransitiveStep) Cardinality {
	if step.Cardinality == schema.Unbounded {
		return Many
	}
	return One
}
