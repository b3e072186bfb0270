package txn

import (
	"context"
	"fmt"
	"log/slog"

	exocore "github.com/exograph/exo-core"
)

// Execute runs script's steps strictly in order against client, returning
// the last step's rows. Each step's rows are recorded in a fresh Context
// before the next step runs, so Filter/Template steps may reference any
// earlier step by position. A Precheck step that doesn't return exactly one
// row aborts the script with an Authorization error. logger defaults to
// slog.Default() when nil.
func Execute(ctx context.Context, client Client, script Script, policy RetryPolicy, logger *slog.Logger) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tc := &Context{}

	var rows []Row
	for i, step := range script.Steps {
		var err error
		rows, err = executeStep(ctx, client, tc, step, policy, logger)
		if err != nil {
			return nil, fmt.Errorf("txn: step %d: %w", i, err)
		}
		tc.record(rows)
	}
	return rows, nil
}

func executeStep(ctx context.Context, client Client, tc *Context, step Step, policy RetryPolicy, logger *slog.Logger) ([]Row, error) {
	switch step.Kind {
	case StepConcrete:
		return runQuery(ctx, client, step.Concrete, policy, logger)

	case StepPrecheck:
		rows, err := runQuery(ctx, client, step.Concrete, policy, logger)
		if err != nil {
			return nil, err
		}
		if len(rows) != 1 {
			return nil, exocore.NewPrecheckError(step.PrecheckEntity)
		}
		return rows, nil

	case StepTemplate:
		prior, ok := tc.Rows(step.TemplatePrior)
		if !ok {
			return nil, fmt.Errorf("template step references unresolved step %d", step.TemplatePrior)
		}
		ops, err := step.Template(prior)
		if err != nil {
			return nil, fmt.Errorf("resolving template: %w", err)
		}
		if len(ops) == 0 {
			return nil, nil
		}
		var rows []Row
		for i, op := range ops {
			r, err := runQuery(ctx, client, op, policy, logger)
			if err != nil {
				return nil, fmt.Errorf("template operation %d: %w", i, err)
			}
			rows = r // only the last operation's rows are kept; prior ones ran for side effects
		}
		return rows, nil

	case StepFilter:
		prior, ok := tc.Rows(step.FilterPrior)
		if !ok {
			return nil, fmt.Errorf("filter step references unresolved step %d", step.FilterPrior)
		}
		op, err := buildFilterOperation(step, prior)
		if err != nil {
			return nil, err
		}
		return runQuery(ctx, client, op, policy, logger)

	case StepDynamic:
		resolved, err := step.Dynamic(tc)
		if err != nil {
			return nil, fmt.Errorf("resolving dynamic step: %w", err)
		}
		return executeStep(ctx, client, tc, resolved, policy, logger)

	default:
		return nil, fmt.Errorf("unknown step kind %d", step.Kind)
	}
}

// runQuery executes op, retrying only Select operations on a transient
// error, up to policy.MaxRetries times with decorrelated-jitter backoff.
// Writes (Insert/Update/Delete) surface a transient error immediately.
func runQuery(ctx context.Context, client Client, op Operation, policy RetryPolicy, logger *slog.Logger) ([]Row, error) {
	if op.Kind != Select {
		if _, err := client.Exec(ctx, op); err != nil {
			return nil, exocore.Wrap("executing write", err)
		}
		return nil, nil
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		rows, err := client.Query(ctx, op)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt > policy.MaxRetries {
			break
		}
		logger.Warn("retrying transient database error", "attempt", attempt, "max_retries", policy.MaxRetries, "error", err)
		policy.Backoff.Sleep(ctx, attempt)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, exocore.Wrap("executing select", lastErr)
}

// buildFilterOperation composes step's base predicate with pk-equality
// against prior's rows, one `= ANY($n)` clause per pk column (so a
// composite key correlates component-wise rather than via a single
// tuple-in-array form, keeping the parameter binding a plain typed array
// per column).
func buildFilterOperation(step Step, prior []Row) (Operation, error) {
	cols := step.FilterSelectColumns
	if len(cols) == 0 {
		cols = step.FilterPKColumns
	}

	pkArrays := make([][]any, len(step.FilterPKColumns))
	for i, pk := range step.FilterPKColumns {
		vals := make([]any, 0, len(prior))
		for _, row := range prior {
			v, ok := row[pk]
			if !ok {
				return Operation{}, fmt.Errorf("filter: prior rows missing pk column %q", pk)
			}
			vals = append(vals, v)
		}
		pkArrays[i] = vals
	}

	var sql string
	args := append([]any(nil), step.FilterBasePredicateArg...)
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = `"` + c + `"`
	}
	sql = "SELECT " + join(quotedCols, ", ") + ` FROM "` + step.FilterTable + `" WHERE (` + step.FilterBasePredicateSQL + ")"
	for i, pk := range step.FilterPKColumns {
		args = append(args, pkArrays[i])
		sql += fmt.Sprintf(` AND "%s" = ANY($%d)`, pk, len(args))
	}

	return Operation{Kind: Select, SQL: sql, Args: args, Columns: cols}, nil
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
