// Package validate parses an incoming GraphQL request with
// github.com/vektah/gqlparser/v2 and reduces it to a ValidatedOperation: a
// single named operation against the schema's query or mutation root, its
// variables coerced to schema.ConstValue per their declared types, and its
// selection set flattened through fragments and depth-checked.
//
// Parsing follows hanpama-protograph's internal/language package, which
// wraps parser.ParseQuery(&ast.Source{Input: ...}) the same way.
package validate

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	exocore "github.com/exograph/exo-core"
	"github.com/exograph/exo-core/schema"
)

// ValidatedField is one selected field, with its arguments already coerced
// and its subfields already resolved through fragments.
type ValidatedField struct {
	Alias     string
	Name      string
	Arguments map[string]schema.ConstValue
	Subfields []ValidatedField
}

// ValidatedOperation is the validator's output: one operation, picked out of
// the request document, ready for the selection planner.
type ValidatedOperation struct {
	Name          string
	OperationType ast.Operation
	Fields        []ValidatedField
}

// DepthLimits bounds selection-set nesting. Normal applies to
// ordinary operations; Introspection applies once a selection enters an
// introspection field (__schema, __type, and their descendants).
type DepthLimits struct {
	Normal        int
	Introspection int
}

// RootNames names the schema's query and mutation root operation types, the
// only two pieces of schema.Schema the validator consults.
type RootNames struct {
	Query    string
	Mutation string
}

// Validate parses source, selects the named operation (or the sole operation
// if operationName is empty), coerces variables against its declared types,
// and walks its selection set to a flat, depth-checked ValidatedOperation.
func Validate(source, operationName string, variables map[string]any, roots RootNames, limits DepthLimits) (*ValidatedOperation, error) {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: source})
	if gqlErr != nil {
		return nil, exocore.NewValidationError("MalformedDocument", gqlErr.Error())
	}

	op, err := selectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}

	switch op.Operation {
	case ast.Query:
		if roots.Query == "" {
			return nil, exocore.NewValidationError("OperationNotFound", "schema has no query root")
		}
	case ast.Mutation:
		if roots.Mutation == "" {
			return nil, exocore.NewValidationError("OperationNotFound", "schema has no mutation root")
		}
	default:
		return nil, exocore.NewValidationError("OperationNotFound", "subscriptions are not supported")
	}

	varValues, err := coerceVariables(op.VariableDefinitions, variables)
	if err != nil {
		return nil, err
	}

	v := &selectionSetValidator{limits: limits, doc: doc, vars: varValues}
	fields, err := v.walk(op.SelectionSet, 0, nil)
	if err != nil {
		return nil, err
	}

	return &ValidatedOperation{Name: op.Name, OperationType: op.Operation, Fields: fields}, nil
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	if name == "" {
		if len(doc.Operations) != 1 {
			return nil, exocore.NewValidationError("OperationNotFound", "operationName is required when a document defines more than one operation")
		}
		return doc.Operations[0], nil
	}
	for _, op := range doc.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, exocore.NewValidationError("OperationNotFound", fmt.Sprintf("no operation named %q", name))
}

func coerceVariables(defs ast.VariableDefinitionList, supplied map[string]any) (map[string]schema.ConstValue, error) {
	out := make(map[string]schema.ConstValue, len(defs))
	for _, def := range defs {
		raw, ok := supplied[def.Variable]
		if !ok {
			if def.DefaultValue != nil {
				dv, err := def.DefaultValue.Value(nil)
				if err != nil {
					return nil, exocore.NewValidationError("MalformedVariable", fmt.Sprintf("%s: %s", def.Variable, err))
				}
				raw = dv
			} else if !def.Type.NonNull {
				out[def.Variable] = schema.NullValue()
				continue
			} else {
				return nil, exocore.NewValidationError("VariableNotFound", def.Variable)
			}
		}
		cv, err := coerceTyped(def.Type, raw)
		if err != nil {
			return nil, exocore.NewValidationError("MalformedVariable", fmt.Sprintf("%s: %s", def.Variable, err))
		}
		out[def.Variable] = cv
	}
	return out, nil
}

// coerceTyped coerces a raw JSON-shaped value to ConstValue per its declared
// GraphQL type, recursing into list element types. Input-object field types
// aren't available without a compiled ast.Schema (none is built here), so
// object-shaped values fall back to structural inference via fromAny.
func coerceTyped(t *ast.Type, raw any) (schema.ConstValue, error) {
	if raw == nil {
		if t.NonNull {
			return schema.ConstValue{}, fmt.Errorf("null not allowed for non-null type %s", t.String())
		}
		return schema.NullValue(), nil
	}
	if t.Elem != nil {
		list, ok := raw.([]any)
		if !ok {
			return schema.ConstValue{}, fmt.Errorf("expected a list for type %s", t.String())
		}
		vals := make([]schema.ConstValue, len(list))
		for i, e := range list {
			cv, err := coerceTyped(t.Elem, e)
			if err != nil {
				return schema.ConstValue{}, err
			}
			vals[i] = cv
		}
		return schema.ListValue(vals...), nil
	}

	switch t.Name() {
	case "Int":
		n, ok := asInt64(raw)
		if !ok {
			return schema.ConstValue{}, fmt.Errorf("expected an integer for type Int, got %T", raw)
		}
		return schema.Int64Value(n), nil
	case "Float":
		f, ok := asFloat64(raw)
		if !ok {
			return schema.ConstValue{}, fmt.Errorf("expected a number for type Float, got %T", raw)
		}
		return schema.Float64Value(f), nil
	case "Boolean":
		b, ok := raw.(bool)
		if !ok {
			return schema.ConstValue{}, fmt.Errorf("expected a boolean for type Boolean, got %T", raw)
		}
		return schema.BoolValue(b), nil
	case "String", "ID":
		s, ok := raw.(string)
		if !ok {
			return schema.ConstValue{}, fmt.Errorf("expected a string for type %s, got %T", t.Name(), raw)
		}
		return schema.StringValue(s), nil
	case "Decimal":
		// Bound to a string rather than asFloat64 so a Postgres numeric
		// column receives the caller's exact digits instead of a
		// float64-rounded approximation.
		s, ok := raw.(string)
		if !ok {
			return schema.ConstValue{}, fmt.Errorf("expected a decimal string for type Decimal, got %T", raw)
		}
		return schema.DecimalValue(s), nil
	default:
		return fromAny(raw), nil
	}
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// fromAny infers a ConstValue from a value's Go shape, used where no
// declared GraphQL type is available (free-form arguments, input-object
// fields, enum values).
func fromAny(raw any) schema.ConstValue {
	switch v := raw.(type) {
	case nil:
		return schema.NullValue()
	case string:
		return schema.StringValue(v)
	case bool:
		return schema.BoolValue(v)
	case int:
		return schema.Int64Value(int64(v))
	case int64:
		return schema.Int64Value(v)
	case float64:
		if v == float64(int64(v)) {
			return schema.Int64Value(int64(v))
		}
		return schema.Float64Value(v)
	case []any:
		vals := make([]schema.ConstValue, len(v))
		for i, e := range v {
			vals[i] = fromAny(e)
		}
		return schema.ListValue(vals...)
	case map[string]any:
		// No dedicated object ConstValue kind; fields are carried as a
		// list of (key, value)-shaped pairs, which is enough for the
		// argument maps the planner reads by name rather than by value.
		vals := make([]schema.ConstValue, 0, len(v))
		for key, e := range v {
			vals = append(vals, schema.ListValue(schema.StringValue(key), fromAny(e)))
		}
		return schema.ListValue(vals...)
	default:
		return schema.NullValue()
	}
}

// selectionSetValidator walks a selection set, resolving fragment spreads
// and inline fragments inline and enforcing the depth limit.
type selectionSetValidator struct {
	limits DepthLimits
	doc    *ast.QueryDocument
	vars   map[string]schema.ConstValue
}

// checkDepth implements a tri-state depth rule: at the root level (or
// anywhere isIntrospection hasn't yet been decided) depth is unconstrained;
// below that, depth is bounded by whichever limit the established
// introspection flag selects.
func (v *selectionSetValidator) checkDepth(depth int, isIntrospection *bool) error {
	if isIntrospection == nil {
		return nil
	}
	limit := v.limits.Normal
	if *isIntrospection {
		limit = v.limits.Introspection
	}
	if depth > limit {
		return exocore.NewValidationError("SelectionSetTooDeep", fmt.Sprintf("depth %d exceeds limit %d", depth, limit))
	}
	return nil
}

func (v *selectionSetValidator) walk(set ast.SelectionSet, depth int, isIntrospection *bool) ([]ValidatedField, error) {
	if err := v.checkDepth(depth, isIntrospection); err != nil {
		return nil, err
	}

	var fields []ValidatedField
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			args, err := v.coerceArguments(s.Arguments)
			if err != nil {
				return nil, err
			}
			childIntro := isIntrospection
			if childIntro == nil {
				b := strings.HasPrefix(s.Name, "__")
				childIntro = &b
			}
			subfields, err := v.walk(s.SelectionSet, depth+1, childIntro)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ValidatedField{
				Alias:     s.Alias,
				Name:      s.Name,
				Arguments: args,
				Subfields: subfields,
			})

		case *ast.FragmentSpread:
			frag := v.doc.Fragments.ForName(s.Name)
			if frag == nil {
				return nil, exocore.NewValidationError("FragmentNotFound", s.Name)
			}
			sub, err := v.walk(frag.SelectionSet, depth, isIntrospection)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sub...)

		case *ast.InlineFragment:
			sub, err := v.walk(s.SelectionSet, depth, isIntrospection)
			if err != nil {
				return nil, err
			}
			fields = append(fields, sub...)
		}
	}
	return fields, nil
}

func (v *selectionSetValidator) coerceArguments(args ast.ArgumentList) (map[string]schema.ConstValue, error) {
	if len(args) == 0 {
		return nil, nil
	}
	varsAny := make(map[string]any, len(v.vars))
	for name, cv := range v.vars {
		varsAny[name] = cv.Any()
	}

	out := make(map[string]schema.ConstValue, len(args))
	for _, arg := range args {
		raw, err := arg.Value.Value(varsAny)
		if err != nil {
			return nil, exocore.NewValidationError("MalformedVariable", fmt.Sprintf("%s: %s", arg.Name, err))
		}
		out[arg.Name] = fromAny(raw)
	}
	return out, nil
}
