// Package response assembles the final GraphQL operation result from the
// raw string rows a TransactionScript's last step produced. Spec §4.8: zero
// rows means an absent body, one row is the body verbatim, and more than
// one is an invariant violation (NonUniqueResultError) — every query the
// selection planner builds compiles to either a single aggregated row
// (collections, via jsonb_agg) or a plain per-row select bounded to at most
// one row by its predicate (unique queries), so this case is a defensive
// check rather than a routine code path.
package response

import exocore "github.com/exograph/exo-core"

// Result is an assembled response: a body (nil when the query matched
// nothing) plus headers a computed-field post-processor may still rewrite.
type Result struct {
	Body    *string
	Headers map[string][]string
}

// Assemble applies the 0/1/>1 rule to rows, the raw string results of a
// TransactionScript's last step.
func Assemble(rows []string) (*Result, error) {
	switch len(rows) {
	case 0:
		return &Result{Headers: map[string][]string{}}, nil
	case 1:
		body := rows[0]
		return &Result{Body: &body, Headers: map[string][]string{}}, nil
	default:
		return nil, exocore.NewNonUniqueResultError(len(rows))
	}
}
