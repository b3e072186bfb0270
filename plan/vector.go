package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/exograph/exo-core/schema"
)

// coerceVectorLiteral normalizes a vector-distance argument (a pseudo-field's
// "to", or an order-by's "distanceTo") into a schema.VectorValue, accepting
// either wire shape a client may send: a GraphQL list of numbers (already a
// ConstValue list by the time it reaches here) or a Postgres-style
// "[v1,v2,...]" string literal, parsed here since the validator has no
// declared-argument-type information to dispatch on for inline values.
func coerceVectorLiteral(v schema.ConstValue) (schema.ConstValue, error) {
	if _, ok := v.Vector(); ok {
		return v, nil
	}
	if list, ok := v.List(); ok {
		vec := make([]float64, len(list))
		for i, e := range list {
			f, ok := numericComponent(e)
			if !ok {
				return schema.ConstValue{}, fmt.Errorf("plan: vector literal element %d is not numeric", i)
			}
			vec[i] = f
		}
		return schema.VectorValue(vec...), nil
	}
	if s, ok := v.String(); ok {
		return parseVectorString(s)
	}
	return schema.ConstValue{}, fmt.Errorf("plan: expected a vector literal (a list of numbers or a \"[n,n,...]\" string)")
}

func numericComponent(v schema.ConstValue) (float64, bool) {
	if f, ok := v.Float64(); ok {
		return f, true
	}
	if n, ok := v.Int64(); ok {
		return float64(n), true
	}
	return 0, false
}

// parseVectorString parses a Postgres vector text literal like "[1,2,3]".
func parseVectorString(s string) (schema.ConstValue, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return schema.ConstValue{}, fmt.Errorf("plan: malformed vector literal %q", s)
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return schema.VectorValue(), nil
	}
	parts := strings.Split(inner, ",")
	vec := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return schema.ConstValue{}, fmt.Errorf("plan: malformed vector component %q: %w", p, err)
		}
		vec[i] = f
	}
	return schema.VectorValue(vec...), nil
}
