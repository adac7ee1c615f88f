package compiler

import (
	"math"
	"strconv"
	"strings"
)

const flagMarker = "--"

// flagTrue is the value of a flag that is followed by another flag or by
// nothing at all.
const flagTrue = "true"

// ParseFlags scans tokens left to right. A token starting with "--" consumes
// the following token as its value unless that token is itself a flag, in
// which case the flag's value is "true". Tokens that are neither flags nor
// consumed values are skipped. A repeated flag keeps its last value.
//
// Plans are generated programmatically against exactly this rule.
func ParseFlags(tokens []string) map[string]string {
	flags := make(map[string]string)
	for i := 0; i < len(tokens); {
		token := tokens[i]
		if !strings.HasPrefix(token, flagMarker) {
			i++
			continue
		}
		key := strings.TrimPrefix(token, flagMarker)
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], flagMarker) {
			flags[key] = tokens[i+1]
			i += 2
			continue
		}
		flags[key] = flagTrue
		i++
	}
	return flags
}

// flagSet wraps parsed flags with typed accessors that report
// INVALID_ARGUMENT against the original tokens.
type flagSet struct {
	tokens []string
	values map[string]string
}

func newFlagSet(tokens, rest []string) *flagSet {
	return &flagSet{tokens: tokens, values: ParseFlags(rest)}
}

func (f *flagSet) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *flagSet) str(key, def string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

// integer parses the flag as a number and truncates it toward zero, so
// "390.5" is accepted as 390.
func (f *flagSet) integer(key string, def int) (int, error) {
	p, err := f.optInteger(key)
	if err != nil || p == nil {
		return def, err
	}
	return *p, nil
}

func (f *flagSet) optInteger(key string) (*int, error) {
	v, ok := f.values[key]
	if !ok || v == "" {
		return nil, nil
	}
	n, err := parseNumber(v)
	if err != nil {
		return nil, invalidArgument(f.tokens, flagMarker+key, "%q is not a number", v)
	}
	// -float64(math.MinInt) is exactly 2^63 (2^31 on 32-bit).
	if n >= -float64(math.MinInt) || n < float64(math.MinInt) {
		return nil, invalidArgument(f.tokens, flagMarker+key, "%q is out of range", v)
	}
	i := int(n)
	return &i, nil
}

func (f *flagSet) optFloat(key string) (*float64, error) {
	v, ok := f.values[key]
	if !ok || v == "" {
		return nil, nil
	}
	n, err := parseNumber(v)
	if err != nil {
		return nil, invalidArgument(f.tokens, flagMarker+key, "%q is not a number", v)
	}
	return &n, nil
}

// enum upper-cases the flag value and checks it against allowed.
// An absent or empty flag yields def.
func (f *flagSet) enum(key, def string, allowed []string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(f.values[key]))
	if v == "" {
		return def, nil
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", invalidArgument(f.tokens, flagMarker+key, "%q is not one of %s", v, strings.Join(allowed, "|"))
}

// parseNumber accepts any finite decimal or exponent literal.
func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
