package executor

import "regexp"

// placeholderPattern matches {{name}}; names are letters, digits, '_', '.'
// and '-'.
var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_.-]+)\}\}`)

// Lookup resolves capture names.
type Lookup interface {
	Get(name string) (string, bool)
}

// Substitute replaces every {{name}} in tokens with its capture value.
//
// Tokens without placeholders are returned unchanged. The first name that
// cannot be resolved fails the whole call with UNRESOLVED_CAPTURE. The input
// slice is never modified.
func Substitute(tokens []string, captures Lookup) ([]string, error) {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		var missing string
		out[i] = placeholderPattern.ReplaceAllStringFunc(tok, func(m string) string {
			name := placeholderPattern.FindStringSubmatch(m)[1]
			v, ok := captures.Get(name)
			if !ok {
				if missing == "" {
					missing = name
				}
				return m
			}
			return v
		})
		if missing != "" {
			return nil, &RuntimeError{
				Code:    ErrCodeUnresolvedCapture,
				Message: "missing capture for placeholder: " + missing,
				Capture: missing,
			}
		}
	}
	return out, nil
}

// Placeholders returns the capture names referenced by tokens, in order of
// first appearance.
func Placeholders(tokens []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, tok := range tokens {
		for _, m := range placeholderPattern.FindAllStringSubmatch(tok, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}
