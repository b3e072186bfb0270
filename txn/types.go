// Package txn is the transaction engine: an append-only TransactionScript of
// TransactionSteps executed strictly in order against a single client, with
// retry-with-backoff around read-only steps and a Precheck step that maps a
// non-single-row result to an authorization failure at the resolver
// boundary. Mirrors a generated per-entity transaction wrapper, hand-written
// as a single entity-agnostic type instead of one Tx struct per entity.
package txn

import "context"

// Row is one result row, keyed by column name. Concrete/Filter/Precheck
// steps all produce rows in this shape; Template steps consume them to
// build their resolved operations.
type Row map[string]any

// OperationKind discriminates an Operation's SQL statement kind. Only
// Select operations are retried on a transient error.
type OperationKind int

const (
	Select OperationKind = iota
	Insert
	Update
	Delete
)

// Operation is an already-built SQL statement: text, positional arguments,
// and enough metadata for the engine to decide whether it's retryable and
// how to turn its result set into Rows. It's opaque to txn by design —
// Concrete steps carry one built by the SQL compiler (package dialect/sql)
// or a Builder-based insert/update/delete directly; txn never inspects how
// it was produced.
type Operation struct {
	Kind    OperationKind
	SQL     string
	Args    []any
	Columns []string // result-set column names, for Select
}

// TemplateFunc resolves a Template step against the prior step's rows,
// producing one or more concrete operations. All but the last are executed
// for side effects only; the last's rows become the step's result.
type TemplateFunc func(prior []Row) ([]Operation, error)

// DynamicFunc is a caller-supplied, fully data-dependent step resolver —
// the escape hatch for planning that the other four variants can't express
// declaratively.
type DynamicFunc func(ctx *Context) (Step, error)

// StepKind discriminates TransactionStep's tagged variant.
type StepKind int

const (
	StepConcrete StepKind = iota
	StepTemplate
	StepFilter
	StepPrecheck
	StepDynamic
)

// Step is one entry of a TransactionScript. Only the fields relevant to
// Kind are meaningful.
type Step struct {
	Kind StepKind

	// StepConcrete / StepPrecheck
	Concrete Operation
	// PrecheckEntity names the entity a failed StepPrecheck is reported
	// against (exocore.AuthorizationError.Entity).
	PrecheckEntity string

	// StepTemplate
	Template      TemplateFunc
	TemplatePrior int

	// StepFilter: composes FilterBasePredicateSQL/FilterBasePredicateArg
	// with pk-equality against the prior step's rows via `= ANY($n)`, one
	// clause per column named in FilterPKColumns.
	FilterPrior            int
	FilterTable            string
	FilterPKColumns        []string
	FilterSelectColumns    []string
	FilterBasePredicateSQL string
	FilterBasePredicateArg []any

	// StepDynamic
	Dynamic DynamicFunc
}

// Concrete builds an ordinary Concrete step.
func Concrete(op Operation) Step { return Step{Kind: StepConcrete, Concrete: op} }

// Precheck builds a Precheck step: op must return exactly one row or the
// script fails with a Precheck error (reported against entity), which
// exocore.AuthorizationError's Is method already maps to Authorization at
// the resolver boundary.
func Precheck(entity string, op Operation) Step {
	return Step{Kind: StepPrecheck, Concrete: op, PrecheckEntity: entity}
}

// TemplateStep builds a Template step resolved against step priorStep's rows.
func TemplateStep(priorStep int, fn TemplateFunc) Step {
	return Step{Kind: StepTemplate, Template: fn, TemplatePrior: priorStep}
}

// FilterStep builds a Filter step selecting selectColumns from table where
// baseSQL (parameterized by baseArgs) holds, AND'ed with pk-equality against
// the priorStep's rows over pkColumns.
func FilterStep(priorStep int, table string, pkColumns, selectColumns []string, baseSQL string, baseArgs []any) Step {
	return Step{
		Kind: StepFilter, FilterPrior: priorStep, FilterTable: table,
		FilterPKColumns: pkColumns, FilterSelectColumns: selectColumns,
		FilterBasePredicateSQL: baseSQL, FilterBasePredicateArg: baseArgs,
	}
}

// DynamicStep builds a Dynamic step.
func DynamicStep(fn DynamicFunc) Step { return Step{Kind: StepDynamic, Dynamic: fn} }

// Script is an append-only ordered list of steps.
type Script struct {
	Steps []Step
}

// Append adds step to the end of the script and returns its zero-based step id.
func (s *Script) Append(step Step) int {
	s.Steps = append(s.Steps, step)
	return len(s.Steps) - 1
}

// NeedsTransaction reports whether executing s requires an open transaction:
// true iff it has two or more steps.
func (s *Script) NeedsTransaction() bool { return len(s.Steps) >= 2 }

// Context is the per-request, per-script result table: step id -> rows. It
// is exclusive to one script execution, never shared across requests.
type Context struct {
	results [][]Row
}

// Rows returns the result of step id, if it has executed.
func (c *Context) Rows(id int) ([]Row, bool) {
	if id < 0 || id >= len(c.results) {
		return nil, false
	}
	return c.results[id], true
}

func (c *Context) record(rows []Row) int {
	c.results = append(c.results, rows)
	return len(c.results) - 1
}

// Client executes a single Operation against the active connection/transaction.
type Client interface {
	Exec(ctx context.Context, op Operation) (rowsAffected int64, err error)
	Query(ctx context.Context, op Operation) ([]Row, error)
}
