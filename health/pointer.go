package health

import (
	"fmt"
	"strconv"
	"strings"
)

// resolvePointer walks an already-decoded JSON value (map[string]any /
// []any, as encoding/json.Unmarshal produces) by an RFC 6901 JSON pointer.
// Not wired to a third-party JSON-pointer library: the pack's only sighting
// of one is an indirect, unrelated OpenAPI-tooling dependency in
// other_examples, not a direct dependency any teacher/pack repo exercises,
// and RFC 6901's walk is a dozen lines against values already decoded by
// encoding/json — see DESIGN.md.
func resolvePointer(v any, pointer string) (any, error) {
	if pointer == "" || pointer == "/" {
		return v, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("health: json pointer must start with '/': %q", pointer)
	}
	cur := v
	for _, tok := range strings.Split(pointer[1:], "/") {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[tok]
			if !ok {
				return nil, fmt.Errorf("health: json pointer %q: no key %q", pointer, tok)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, fmt.Errorf("health: json pointer %q: bad index %q", pointer, tok)
			}
			cur = c[idx]
		default:
			return nil, fmt.Errorf("health: json pointer %q: %q is not a container", pointer, tok)
		}
	}
	return cur, nil
}
