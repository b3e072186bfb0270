package schema

// ConstValueKind discriminates ConstValue's closed sum.
type ConstValueKind int

const (
	KindString ConstValueKind = iota
	KindInt64
	KindFloat64
	KindBool
	KindNull
	KindList
	KindVector
	// KindDecimal carries a numeric literal as its original string form,
	// so a Postgres `numeric` column round-trips without float64 precision
	// loss — supplemented from original_source/'s decimal coercion path.
	KindDecimal
)

// ConstValue is the closed, coercion-target value type shared by variable
// coercion, predicate construction, and the SQL builder's parameter list.
// Mirrors dialect/sql's argument handling (args passed as `[]any` with
// dialect-aware escaping) but as a typed sum instead of bare `any`.
type ConstValue struct {
	kind    ConstValueKind
	str     string
	i64     int64
	f64     float64
	b       bool
	list    []ConstValue
	vector  []float64
}

func StringValue(s string) ConstValue  { return ConstValue{kind: KindString, str: s} }
func Int64Value(i int64) ConstValue    { return ConstValue{kind: KindInt64, i64: i} }
func Float64Value(f float64) ConstValue { return ConstValue{kind: KindFloat64, f64: f} }
func BoolValue(b bool) ConstValue      { return ConstValue{kind: KindBool, b: b} }
func NullValue() ConstValue            { return ConstValue{kind: KindNull} }
func ListValue(vs ...ConstValue) ConstValue {
	return ConstValue{kind: KindList, list: vs}
}
func VectorValue(vs ...float64) ConstValue {
	return ConstValue{kind: KindVector, vector: vs}
}
func DecimalValue(literal string) ConstValue {
	return ConstValue{kind: KindDecimal, str: literal}
}

func (v ConstValue) Kind() ConstValueKind { return v.kind }
func (v ConstValue) IsNull() bool         { return v.kind == KindNull }

func (v ConstValue) String() (string, bool) {
	if v.kind != KindString && v.kind != KindDecimal {
		return "", false
	}
	return v.str, true
}

func (v ConstValue) Int64() (int64, bool) {
	if v.kind != KindInt64 {
		return 0, false
	}
	return v.i64, true
}

func (v ConstValue) Float64() (float64, bool) {
	if v.kind != KindFloat64 {
		return 0, false
	}
	return v.f64, true
}

func (v ConstValue) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v ConstValue) List() ([]ConstValue, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v ConstValue) Vector() ([]float64, bool) {
	if v.kind != KindVector {
		return nil, false
	}
	return v.vector, true
}

// Any converts the value to the native Go type that the SQL builder binds
// as a driver argument (`database/sql/driver.Value`-compatible).
func (v ConstValue) Any() any {
	switch v.kind {
	case KindString, KindDecimal:
		return v.str
	case KindInt64:
		return v.i64
	case KindFloat64:
		return v.f64
	case KindBool:
		return v.b
	case KindNull:
		return nil
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Any()
		}
		return out
	case KindVector:
		return v.vector
	default:
		return nil
	}
}
