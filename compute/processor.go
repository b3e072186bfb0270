package compute

import (
	"context"
	"fmt"

	exocore "github.com/exograph/exo-core"
	"github.com/exograph/exo-core/access"
	"github.com/exograph/exo-core/schema"
	"github.com/exograph/exo-core/validate"
)

// Processor walks a decoded JSON row against the validated selection that
// produced it, splicing in computed field results.
type Processor struct {
	Registry *Registry
	Scripts  ScriptSource
	Arena    *access.Arena
}

// NewProcessor builds a Processor against reg/scripts/arena.
func NewProcessor(reg *Registry, scripts ScriptSource, arena *access.Arena) *Processor {
	return &Processor{Registry: reg, Scripts: scripts, Arena: arena}
}

// NeedsPostProcessing reports whether entity's row (as selected by fields)
// contains anything PostProcess must act on: a computed field, a nested
// relation whose own selection needs post-processing, or a JSON-like
// representation (which always needs its dependency-key cleanup pass).
//
// Embedded fields are not recursed into: the schema model here carries no
// entity identity for an embedded value's nested shape (RelEmbedded is
// "JSON-within-row; never the target of a sub-select" per the data model),
// so an embedded field containing its own computed subfields is a known
// scoping gap, not a silently wrong answer — see DESIGN.md.
func NeedsPostProcessing(sch *schema.Schema, entity *schema.EntityType, fields []validate.ValidatedField) bool {
	if entity.Representation == schema.RepJSONEmbedded {
		return true
	}
	for _, vf := range fields {
		if vf.Name == "__typename" {
			continue
		}
		f, ok := entity.FieldByName(vf.Name)
		if !ok {
			continue
		}
		if f.Relation.Tag == schema.RelComputed {
			return true
		}
		if len(vf.Subfields) == 0 {
			continue
		}
		nestedID, ok := targetEntityID(&f.Relation)
		if !ok {
			continue
		}
		nested, ok := sch.EntityByID(nestedID)
		if ok && NeedsPostProcessing(sch, nested, vf.Subfields) {
			return true
		}
	}
	return false
}

// PostProcess mutates row in place: computed fields are replaced by their
// subsystem's result, relation subfields are recursed into, and — for a
// JSON-like entity representation — keys the selection didn't project are
// dropped at the end; computed dependencies would otherwise leak into the
// response.
func (p *Processor) PostProcess(ctx context.Context, rc access.RequestContext, sch *schema.Schema, entity *schema.EntityType, fields []validate.ValidatedField, row map[string]any) error {
	return p.postProcess(ctx, rc, sch, entity, fields, row, nil)
}

// postProcess is PostProcess plus a skip set of field names already
// resolved by a sibling batch (see batchComputedFields) and so must not be
// invoked again here.
func (p *Processor) postProcess(ctx context.Context, rc access.RequestContext, sch *schema.Schema, entity *schema.EntityType, fields []validate.ValidatedField, row map[string]any, skip map[string]struct{}) error {
	if row == nil {
		return nil
	}
	for _, vf := range fields {
		if vf.Name == "__typename" {
			continue
		}
		if _, ok := skip[vf.Name]; ok {
			continue
		}
		f, ok := entity.FieldByName(vf.Name)
		if !ok {
			continue
		}
		key := vf.Name
		if vf.Alias != "" {
			key = vf.Alias
		}

		switch f.Relation.Tag {
		case schema.RelComputed:
			if err := p.processComputed(ctx, rc, f, vf, row, key); err != nil {
				return fmt.Errorf("compute: field %q: %w", vf.Name, err)
			}

		case schema.RelOneToMany:
			if len(vf.Subfields) == 0 {
				continue
			}
			nested, ok := sch.EntityByID(f.Relation.OneToManyForeignID)
			if !ok {
				continue
			}
			list, _ := row[key].([]any)
			children := make([]map[string]any, 0, len(list))
			for _, elem := range list {
				if child, ok := elem.(map[string]any); ok {
					children = append(children, child)
				}
			}
			resolved, err := p.batchComputedFields(ctx, rc, nested, vf.Subfields, children)
			if err != nil {
				return fmt.Errorf("compute: field %q: %w", vf.Name, err)
			}
			for _, child := range children {
				if err := p.postProcess(ctx, rc, sch, nested, vf.Subfields, child, resolved); err != nil {
					return err
				}
			}

		case schema.RelManyToOne, schema.RelTransitive:
			if len(vf.Subfields) == 0 {
				continue
			}
			nestedID, ok := targetEntityID(&f.Relation)
			if !ok {
				continue
			}
			nested, ok := sch.EntityByID(nestedID)
			if !ok {
				continue
			}
			child, ok := row[key].(map[string]any)
			if !ok {
				continue
			}
			if err := p.postProcess(ctx, rc, sch, nested, vf.Subfields, child, nil); err != nil {
				return err
			}
		}
	}

	if entity.Representation == schema.RepJSONEmbedded {
		cleanupUnselected(fields, row)
	}
	return nil
}

// batchComputedFields resolves every computed subfield of a one-to-many
// relation's subfields across all of that relation's sibling rows in one
// concurrent dispatch per field, rather than invoking a subsystem once per
// sibling serially. It returns the set of field names it resolved, so the
// caller's subsequent per-child recursion skips them instead of invoking
// their subsystem a second time.
func (p *Processor) batchComputedFields(ctx context.Context, rc access.RequestContext, nested *schema.EntityType, subfields []validate.ValidatedField, children []map[string]any) (map[string]struct{}, error) {
	resolved := make(map[string]struct{})
	for _, vf := range subfields {
		f, ok := nested.FieldByName(vf.Name)
		if !ok || f.Relation.Tag != schema.RelComputed {
			continue
		}
		resolved[vf.Name] = struct{}{}
		if len(children) == 0 {
			continue
		}

		key := vf.Name
		if vf.Alias != "" {
			key = vf.Alias
		}

		jobs := make([]computeJob, 0, len(children))
		for i, child := range children {
			if access.Solve(p.Arena, f.Access.Read, rc).IsForbidden() {
				delete(child, key)
				continue
			}

			placeholder, _ := child[key].(map[string]any)
			parent := make(map[string]any, len(child)+len(placeholder))
			for k, v := range child {
				parent[k] = v
			}
			delete(parent, key)
			for k, v := range placeholder {
				parent[k] = v
			}

			subsystem, ok := p.Registry.Lookup(f.Relation.SubsystemID)
			if !ok {
				return nil, exocore.NewValidationError("UnsupportedComputedFieldSubsystem", f.Relation.SubsystemID)
			}
			scriptPath, err := p.Scripts.ScriptPath(f.Relation.ScriptID)
			if err != nil {
				return nil, err
			}

			jobs = append(jobs, computeJob{
				index:      i,
				row:        child,
				key:        key,
				subsystem:  subsystem,
				scriptPath: scriptPath,
				parent:     parent,
				args:       constValueMapToAny(vf.Arguments),
				selection:  BuildSelectionDescriptors(vf.Subfields),
			})
		}

		outcomes, err := runComputeBatch(ctx, jobs)
		if err != nil {
			return nil, err
		}
		for _, o := range outcomes {
			o.job.row[o.job.key] = o.value
		}
	}
	return resolved, nil
}

// processComputed resolves a single computed field: checks read access,
// builds the parent snapshot, resolves the subsystem and script, invokes
// it, and splices the result back in.
func (p *Processor) processComputed(ctx context.Context, rc access.RequestContext, f *schema.Field, vf validate.ValidatedField, row map[string]any, key string) error {
	if access.Solve(p.Arena, f.Access.Read, rc).IsForbidden() {
		delete(row, key)
		return nil
	}

	placeholder, _ := row[key].(map[string]any)
	parent := make(map[string]any, len(row)+len(placeholder))
	for k, v := range row {
		parent[k] = v
	}
	delete(parent, key)
	for k, v := range placeholder {
		parent[k] = v
	}

	subsystem, ok := p.Registry.Lookup(f.Relation.SubsystemID)
	if !ok {
		return exocore.NewValidationError("UnsupportedComputedFieldSubsystem", f.Relation.SubsystemID)
	}
	scriptPath, err := p.Scripts.ScriptPath(f.Relation.ScriptID)
	if err != nil {
		return err
	}

	result, err := subsystem.ExecuteAndGet(ctx, scriptPath, parent, constValueMapToAny(vf.Arguments), BuildSelectionDescriptors(vf.Subfields))
	if err != nil {
		return err
	}
	row[key] = result
	return nil
}

// BuildSelectionDescriptors converts validated subfields into the JSON
// selection descriptor a computed field's subsystem receives.
func BuildSelectionDescriptors(fields []validate.ValidatedField) []SelectionDescriptor {
	if len(fields) == 0 {
		return nil
	}
	out := make([]SelectionDescriptor, len(fields))
	for i, f := range fields {
		outputName := f.Name
		var alias *string
		if f.Alias != "" && f.Alias != f.Name {
			a := f.Alias
			alias = &a
			outputName = f.Alias
		}
		out[i] = SelectionDescriptor{
			Name:       f.Name,
			OutputName: outputName,
			Alias:      alias,
			Arguments:  constValueMapToAny(f.Arguments),
			Fields:     BuildSelectionDescriptors(f.Subfields),
		}
	}
	return out
}

func constValueMapToAny(m map[string]schema.ConstValue) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

func targetEntityID(r *schema.Relation) (schema.EntityID, bool) {
	switch r.Tag {
	case schema.RelManyToOne:
		return r.ForeignID, true
	case schema.RelOneToMany:
		return r.OneToManyForeignID, true
	case schema.RelTransitive:
		if len(r.Steps) == 0 {
			return 0, false
		}
		return r.Steps[len(r.Steps)-1].TargetEntityID, true
	default:
		return 0, false
	}
}

func cleanupUnselected(fields []validate.ValidatedField, row map[string]any) {
	keep := make(map[string]struct{}, len(fields)+1)
	keep["__typename"] = struct{}{}
	for _, vf := range fields {
		key := vf.Name
		if vf.Alias != "" {
			key = vf.Alias
		}
		keep[key] = struct{}{}
	}
	for k := range row {
		if _, ok := keep[k]; !ok {
			delete(row, k)
		}
	}
}
