package health

import (
	"context"
	"encoding/json"
	"fmt"
)

// Executor runs a GraphQL operation the way the HTTP POST handler (out of
// scope here) does, returning the response's HTTP status and raw JSON
// body.
type Executor func(ctx context.Context, query string, variablesJSON string) (statusCode int, body []byte, err error)

// Result is one health check outcome.
type Result struct {
	OK    bool
	Error string
}

// Checker runs Config's query through an Executor and applies the 2xx +
// no-errors-field + optional-pointer-assertion rule.
type Checker struct {
	Config   Config
	Execute  Executor
}

// NewChecker builds a Checker running cfg's query through execute.
func NewChecker(cfg Config, execute Executor) *Checker {
	return &Checker{Config: cfg, Execute: execute}
}

// Check runs the configured (or fallback) query and reports the outcome.
func (c *Checker) Check(ctx context.Context) Result {
	query, variablesJSON := resolveQuery(c.Config)

	status, body, err := c.Execute(ctx, query, variablesJSON)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}
	if status < 200 || status >= 300 {
		return Result{OK: false, Error: fmt.Sprintf("health: query returned status %d", status)}
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{OK: false, Error: fmt.Sprintf("health: decoding response: %v", err)}
	}
	if errs, ok := decoded["errors"]; ok {
		if list, ok := errs.([]any); !ok || len(list) > 0 {
			return Result{OK: false, Error: "health: response carried an errors field"}
		}
	}

	if c.Config.ResponseJSONPointer == "" {
		return Result{OK: true}
	}

	asserted, err := resolvePointer(any(decoded), c.Config.ResponseJSONPointer)
	if err != nil {
		return Result{OK: false, Error: err.Error()}
	}
	b, ok := asserted.(bool)
	if !ok || !b {
		return Result{OK: false, Error: fmt.Sprintf("health: json pointer %q did not assert true", c.Config.ResponseJSONPointer)}
	}
	return Result{OK: true}
}
