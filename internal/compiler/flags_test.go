package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   map[string]string
	}{
		{"empty", nil, map[string]string{}},
		{"pair", []string{"--name", "Login"}, map[string]string{"name": "Login"}},
		{"flag followed by flag is true", []string{"--json", "--name", "A"}, map[string]string{"json": "true", "name": "A"}},
		{"trailing flag is true", []string{"--name", "A", "--json"}, map[string]string{"name": "A", "json": "true"}},
		{"stray positional skipped", []string{"stray", "--x", "1", "extra"}, map[string]string{"x": "1"}},
		{"last value wins", []string{"--x", "1", "--x", "2"}, map[string]string{"x": "2"}},
		{"negative number is a value", []string{"--x", "-5"}, map[string]string{"x": "-5"}},
		{"empty value consumed", []string{"--text", "", "--x", "1"}, map[string]string{"text": "", "x": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFlags(tt.tokens))
		})
	}
}

func TestParseNumber(t *testing.T) {
	for _, ok := range []string{"0", "390", "-5", "0.25", "1e2", " 7 "} {
		_, err := parseNumber(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "abc", "NaN", "Inf", "1,5", "true"} {
		_, err := parseNumber(bad)
		assert.Error(t, err, bad)
	}
}
