package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/exograph/exo-core/dialect"
	"github.com/exograph/exo-core/plan"
	"github.com/exograph/exo-core/schema"
)

// Compiler lowers a planned AbstractSelect (package plan) into parameterized
// SQL text against a concrete Schema. It lives in this package, not plan,
// because it needs Builder's unexported write helpers to compose statement
// text in strict left-to-right order as it walks the selection tree, writing
// directly into a *Builder rather than composing fragments as Go strings.
type Compiler struct {
	Schema  *schema.Schema
	Dialect string
}

// NewCompiler returns a Compiler bound to reg, defaulting to Postgres — the
// only dialect the JSON-aggregation technique below targets.
func NewCompiler(reg *schema.Schema) *Compiler {
	return &Compiler{Schema: reg, Dialect: dialect.Postgres}
}

// aliasGen hands out short, unique table aliases across one compiled
// statement, including its nested correlated subqueries.
type aliasGen struct{ n int }

func (g *aliasGen) next() string {
	g.n++
	return "t" + strconv.Itoa(g.n)
}

// CompileSelect compiles sel to SQL text and its positional arguments.
// Builder state is always fresh per call, so compiling the same
// AbstractSelect twice produces byte-identical output.
func (c *Compiler) CompileSelect(sel *plan.AbstractSelect) (string, []any, error) {
	entity, ok := c.Schema.EntityByID(sel.Table)
	if !ok {
		return "", nil, fmt.Errorf("sql: unknown entity %d", sel.Table)
	}
	b := &Builder{dialect: c.Dialect}
	ag := &aliasGen{}

	if sel.Selection.Cardinality == plan.Many {
		b.writeString("SELECT coalesce(jsonb_agg(__row.j), '[]'::jsonb)::text FROM (")
		if err := c.writeRowSelect(b, ag, entity, sel, "", nil, "j"); err != nil {
			return "", nil, err
		}
		b.writeString(") AS __row")
	} else {
		if err := c.writeRowSelect(b, ag, entity, sel, "", nil, "j"); err != nil {
			return "", nil, err
		}
	}

	text, args := b.Query()
	return text, args, nil
}

// writeRowSelect writes a plain "SELECT <object> AS col FROM table AS alias
// [WHERE ...] [ORDER BY ...] [LIMIT] [OFFSET]" for one row of entity. When
// parentAlias is non-empty, each corr pair (a column of this row's table, a
// column of parentAlias) is ANDed into the WHERE clause as an equality, the
// join correlation for a nested SubSelect — every correlated subquery
// reduces to the same child-FK-equals-parent-PK shape regardless of which
// relation direction produced it (schema.Schema.ResolveRelation always
// names the child side).
func (c *Compiler) writeRowSelect(b *Builder, ag *aliasGen, entity *schema.EntityType, sel *plan.AbstractSelect, parentAlias string, corr [][2]string, col string) error {
	alias := ag.next()

	b.writeString("SELECT ")
	if err := c.writeObjectExpr(b, ag, alias, entity, sel.Selection.Elements); err != nil {
		return err
	}
	b.writeString(" AS ").writeString(col)
	b.writeString(" FROM ").writeString(b.Quote(entity.Table)).writeString(" AS ").writeString(b.Quote(alias))

	wroteWhere := false
	intro := func() {
		if !wroteWhere {
			b.writeString(" WHERE ")
			wroteWhere = true
		} else {
			b.writeString(" AND ")
		}
	}
	for _, pair := range corr {
		intro()
		b.writeString(b.Quote(alias)).writeByte('.').writeString(b.Quote(pair[0]))
		b.writeString(" = ").writeString(b.Quote(parentAlias)).writeByte('.').writeString(b.Quote(pair[1]))
	}
	if sel.Predicate.Kind != schema.PredTrue {
		intro()
		if err := c.writePredicate(b, alias, entity, sel.Predicate); err != nil {
			return err
		}
	}

	if len(sel.OrderBy.Terms) > 0 {
		b.writeString(" ORDER BY ")
		for i, term := range sel.OrderBy.Terms {
			if i > 0 {
				b.writeString(", ")
			}
			if err := c.writeOrderTerm(b, alias, entity, term); err != nil {
				return err
			}
		}
	}
	if sel.Limit != nil {
		b.writeString(" LIMIT ").writeString(strconv.FormatInt(*sel.Limit, 10))
	}
	if sel.Offset != nil {
		b.writeString(" OFFSET ").writeString(strconv.FormatInt(*sel.Offset, 10))
	}
	return nil
}

func (c *Compiler) writeObjectExpr(b *Builder, ag *aliasGen, alias string, entity *schema.EntityType, elements []plan.AliasedSelectionElement) error {
	b.writeString("jsonb_build_object(")
	for i, ae := range elements {
		if i > 0 {
			b.writeString(", ")
		}
		b.writeByte('\'').writeString(ae.Alias).writeByte('\'').writeString(", ")
		if err := c.writeElement(b, ag, alias, entity, ae.Element); err != nil {
			return err
		}
	}
	b.writeByte(')')
	return nil
}

func (c *Compiler) writeElement(b *Builder, ag *aliasGen, alias string, entity *schema.EntityType, elem plan.SelectionElement) error {
	switch elem.Kind {
	case plan.ElemPhysical:
		field, ok := entity.FieldByID(elem.Column)
		if !ok {
			return fmt.Errorf("sql: unknown column field %d on %s", elem.Column, entity.Name)
		}
		b.writeString(b.Quote(alias)).writeByte('.').writeString(b.Quote(field.Relation.Column))

	case plan.ElemConstant:
		b.Arg(elem.Constant.Any())

	case plan.ElemNull:
		b.writeString("NULL")

	case plan.ElemObject:
		b.writeString("jsonb_build_object(")
		for i, f := range elem.Object {
			if i > 0 {
				b.writeString(", ")
			}
			b.writeByte('\'').writeString(f.Alias).writeByte('\'').writeString(", ")
			if err := c.writeElement(b, ag, alias, entity, f.Element); err != nil {
				return err
			}
		}
		b.writeByte(')')

	case plan.ElemFunction:
		if err := c.writeVectorExpr(b, alias, entity, elem.Function); err != nil {
			return err
		}

	case plan.ElemSubSelect:
		child, selfCols, parentEntity, ok := c.Schema.ResolveRelation(elem.RelationID)
		if !ok {
			return fmt.Errorf("sql: cannot resolve relation %d", elem.RelationID)
		}
		childEntity, ok := c.Schema.EntityByID(elem.SubSelect.Table)
		if !ok {
			return fmt.Errorf("sql: unknown sub-select entity %d", elem.SubSelect.Table)
		}
		// The owning (many) side of the relation always holds the FK columns;
		// the referenced (one) side is identified by its primary key. Which
		// side is "outer" (entity, the row already being built) vs "nested"
		// (childEntity, elem.SubSelect's own table) depends on whether this
		// SubSelect came from a OneToMany field (nested = child/FK holder,
		// outer = parent/PK holder) or a ManyToOne field (nested =
		// parent/PK holder, outer = child/FK holder).
		var corr [][2]string
		switch {
		case parentEntity == entity.ID:
			// OneToMany: nested (child) FK columns correlate to outer (parent,
			// i.e. entity) primary key.
			outerPK := entity.PrimaryKeyColumns()
			if len(selfCols) != len(outerPK) {
				return fmt.Errorf("sql: relation %d has %d FK column(s), entity %s has %d PK column(s)", elem.RelationID, len(selfCols), entity.Name, len(outerPK))
			}
			for i, fkCol := range selfCols {
				corr = append(corr, [2]string{fkCol, outerPK[i]})
			}
		case child == entity.ID:
			// ManyToOne: nested (parent/target) primary key correlates to
			// outer (child, i.e. entity) FK columns.
			nestedPK := childEntity.PrimaryKeyColumns()
			if len(selfCols) != len(nestedPK) {
				return fmt.Errorf("sql: relation %d has %d FK column(s), entity %s has %d PK column(s)", elem.RelationID, len(selfCols), childEntity.Name, len(nestedPK))
			}
			for i, fkCol := range selfCols {
				corr = append(corr, [2]string{nestedPK[i], fkCol})
			}
		default:
			return fmt.Errorf("sql: relation %d does not connect entity %s to sub-select entity %s", elem.RelationID, entity.Name, childEntity.Name)
		}
		b.writeByte('(')
		if elem.SubSelect.Selection.Cardinality == plan.Many {
			b.writeString("SELECT coalesce(jsonb_agg(__row.j), '[]'::jsonb)::text FROM (")
			if err := c.writeRowSelect(b, ag, childEntity, elem.SubSelect, alias, corr, "j"); err != nil {
				return err
			}
			b.writeString(") AS __row")
		} else {
			if err := c.writeRowSelect(b, ag, childEntity, elem.SubSelect, alias, corr, "j"); err != nil {
				return err
			}
		}
		b.writeByte(')')

	case plan.ElemJsonExtract:
		b.writeByte('(')
		if err := c.writeElement(b, ag, alias, entity, *elem.Source); err != nil {
			return err
		}
		b.writeString(")::jsonb #>> '{")
		b.writeString(strings.Join(elem.Path, ","))
		b.writeString("}'")

	case plan.ElemJsonArrayExtract:
		b.writeString("(SELECT jsonb_agg(__elem.value -> '")
		b.writeString(elem.Key)
		b.writeString("') FROM jsonb_array_elements((")
		if err := c.writeElement(b, ag, alias, entity, *elem.Source); err != nil {
			return err
		}
		b.writeString(")::jsonb) AS __elem(value))::text")

	default:
		return fmt.Errorf("sql: unhandled selection element kind %d", elem.Kind)
	}
	return nil
}

func (c *Compiler) writeVectorExpr(b *Builder, alias string, entity *schema.EntityType, fn plan.VectorDistance) error {
	field, ok := leafField(entity, fn.Column)
	if !ok {
		return fmt.Errorf("sql: vector-distance column not found on %s", entity.Name)
	}
	b.writeString(b.Quote(alias)).writeByte('.').writeString(b.Quote(field.Relation.Column))
	b.writeByte(' ').writeString(fn.Function.Operator()).writeByte(' ')
	b.Arg(vectorLiteral(fn.Target)).writeString("::vector")
	return nil
}

func (c *Compiler) writeOrderTerm(b *Builder, alias string, entity *schema.EntityType, term plan.OrderByTerm) error {
	if len(term.Path.Links) != 1 || term.Path.Links[0].Kind != schema.LinkLeaf {
		return fmt.Errorf("sql: order-by through a relation is not supported by the compiler (path has %d links)", len(term.Path.Links))
	}
	field, ok := entity.FieldByID(term.Path.Links[0].FieldID)
	if !ok {
		return fmt.Errorf("sql: order-by field %d not found on %s", term.Path.Links[0].FieldID, entity.Name)
	}
	switch term.Kind {
	case plan.OrderTermVector:
		b.writeString(b.Quote(alias)).writeByte('.').writeString(b.Quote(field.Relation.Column))
		b.writeByte(' ').writeString(term.VectorFunction.Operator()).writeByte(' ')
		b.Arg(vectorLiteral(term.VectorTarget)).writeString("::vector")
	default:
		b.writeString(b.Quote(alias)).writeByte('.').writeString(b.Quote(field.Relation.Column))
	}
	if term.Direction == plan.OrderDesc {
		b.writeString(" DESC")
	} else {
		b.writeString(" ASC")
	}
	return nil
}

// writePredicate lowers an AbstractPredicate to SQL text. pred is assumed
// not to be PredTrue (callers check that before deciding whether to open a
// WHERE/AND clause).
func (c *Compiler) writePredicate(b *Builder, alias string, entity *schema.EntityType, pred schema.AbstractPredicate) error {
	switch pred.Kind {
	case schema.PredFalse:
		b.writeString("false")
	case schema.PredComparison:
		return c.writeComparison(b, alias, entity, pred)
	case schema.PredAnd:
		return c.writeConjunction(b, alias, entity, pred.Children, " AND ")
	case schema.PredOr:
		return c.writeConjunction(b, alias, entity, pred.Children, " OR ")
	case schema.PredNot:
		b.writeString("NOT (")
		if err := c.writePredicate(b, alias, entity, *pred.Operand); err != nil {
			return err
		}
		b.writeByte(')')
	default:
		b.writeString("true")
	}
	return nil
}

func (c *Compiler) writeConjunction(b *Builder, alias string, entity *schema.EntityType, children []schema.AbstractPredicate, sep string) error {
	b.writeByte('(')
	for i, child := range children {
		if i > 0 {
			b.writeString(sep)
		}
		if err := c.writePredicate(b, alias, entity, child); err != nil {
			return err
		}
	}
	b.writeByte(')')
	return nil
}

func (c *Compiler) writeComparison(b *Builder, alias string, entity *schema.EntityType, pred schema.AbstractPredicate) error {
	if err := c.writeOperand(b, alias, entity, pred.Left); err != nil {
		return err
	}
	b.writeString(comparisonOperator(pred.Op))
	return c.writeOperand(b, alias, entity, pred.Right)
}

func comparisonOperator(op schema.PredicateOp) string {
	switch op {
	case schema.OpEQ:
		return " = "
	case schema.OpNEQ:
		return " <> "
	case schema.OpLT:
		return " < "
	case schema.OpLTE:
		return " <= "
	case schema.OpGT:
		return " > "
	case schema.OpGTE:
		return " >= "
	case schema.OpIn:
		return " IN "
	case schema.OpLike:
		return " LIKE "
	default:
		return " = "
	}
}

func (c *Compiler) writeOperand(b *Builder, alias string, entity *schema.EntityType, op schema.Operand) error {
	if !op.IsColumn {
		b.Arg(op.Value.Any())
		return nil
	}
	if len(op.Column.Links) != 1 || op.Column.Links[0].Kind != schema.LinkLeaf {
		return fmt.Errorf("sql: predicate column path through a relation is not supported by the compiler")
	}
	field, ok := entity.FieldByID(op.Column.Links[0].FieldID)
	if !ok {
		return fmt.Errorf("sql: predicate column field %d not found on %s", op.Column.Links[0].FieldID, entity.Name)
	}
	b.writeString(b.Quote(alias)).writeByte('.').writeString(b.Quote(field.Relation.Column))
	return nil
}

func leafField(entity *schema.EntityType, col schema.PhysicalColumnPath) (*schema.Field, bool) {
	if len(col.Links) != 1 || col.Links[0].Kind != schema.LinkLeaf {
		return nil, false
	}
	return entity.FieldByID(col.Links[0].FieldID)
}

// vectorLiteral renders a ConstValue vector (or pre-formatted string) as a
// pgvector text literal, e.g. "[1,2,3]".
func vectorLiteral(v schema.ConstValue) string {
	if vec, ok := v.Vector(); ok {
		parts := make([]string, len(vec))
		for i, f := range vec {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	if s, ok := v.String(); ok {
		return s
	}
	return fmt.Sprintf("%v", v.Any())
}
