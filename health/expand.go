package health

import (
	"os"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandVariables substitutes every ${NAME} placeholder in raw with the
// named environment variable. An undefined name is reported via the second
// return value rather than an error: an unknown name fails the health
// check's variable expansion (falling back to the default query) rather
// than propagating a hard error — the caller is expected to fall back to
// running DefaultQuery, not to surface a hard failure.
func ExpandVariables(raw string) (expanded string, ok bool) {
	missing := false
	expanded = placeholderRe.ReplaceAllStringFunc(raw, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, present := os.LookupEnv(name)
		if !present {
			missing = true
			return m
		}
		return v
	})
	if missing {
		return "", false
	}
	return expanded, true
}

// resolveQuery picks the query/variables pair to actually run: cfg's
// configured query and expanded variables, or DefaultQuery with no
// variables if variable expansion failed.
func resolveQuery(cfg Config) (query, variablesJSON string) {
	if cfg.VariablesJSON == "" {
		return cfg.Query, ""
	}
	expanded, ok := ExpandVariables(cfg.VariablesJSON)
	if !ok {
		return DefaultQuery, ""
	}
	return cfg.Query, expanded
}
