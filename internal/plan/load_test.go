package plan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/figbridge/internal/compiler"
	"github.com/roach88/figbridge/internal/executor"
	"github.com/roach88/figbridge/internal/ir"
)

const validJSON = `{
  "meta": {"project_name": "Shop", "screen_count": 1},
  "operations": [
    {"name": "page", "run": ["create", "page", "Home"], "capture": "page_id"},
    {"run": ["page", "set", "{{page_id}}"], "ignore_error": true}
  ]
}`

const validYAML = `
meta:
  project_name: Shop
operations:
  - name: page
    run: [create, page, Home]
    capture: page_id
  - run: [page, set, "{{page_id}}"]
    ignore_error: true
`

func TestParse_JSON(t *testing.T) {
	p, err := Parse("plan.json", []byte(validJSON))
	require.NoError(t, err)

	assert.Equal(t, "Shop", p.MetaString("project_name"))
	require.Len(t, p.Operations, 2)
	assert.Equal(t, ir.Operation{Name: "page", Run: []string{"create", "page", "Home"}, Capture: "page_id"}, p.Operations[0])
	assert.True(t, p.Operations[1].IgnoreError)
}

func TestParse_YAML(t *testing.T) {
	p, err := Parse("plan.yaml", []byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "Shop", p.MetaString("project_name"))
	require.Len(t, p.Operations, 2)
	assert.Equal(t, []string{"page", "set", "{{page_id}}"}, p.Operations[1].Run)
}

func TestParse_NoMeta(t *testing.T) {
	p, err := Parse("plan.json", []byte(`{"operations": []}`))
	require.NoError(t, err)
	assert.Empty(t, p.Operations)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		data  string
		phase Phase
	}{
		{"empty", "plan.json", "  ", PhaseParse},
		{"not json", "plan.json", "{nope", PhaseParse},
		{"top-level list", "plan.json", `[1, 2]`, PhaseSchema},
		{"missing operations", "plan.json", `{"meta": {}}`, PhaseSchema},
		{"operations not a list", "plan.json", `{"operations": {"run": []}}`, PhaseSchema},
		{"run not a list", "plan.json", `{"operations": [{"run": "create page X"}]}`, PhaseSchema},
		{"run with number", "plan.json", `{"operations": [{"run": ["set", "opacity", "1:2", 0.5]}]}`, PhaseSchema},
		{"missing run", "plan.json", `{"operations": [{"name": "x"}]}`, PhaseSchema},
		{"capture not a string", "plan.json", `{"operations": [{"run": ["create", "page", "A"], "capture": 1}]}`, PhaseSchema},
		{"ignore_error not bool", "plan.json", `{"operations": [{"run": ["create", "page", "A"], "ignore_error": "yes"}]}`, PhaseSchema},
		{"yaml run scalar", "plan.yml", "operations:\n  - run: create\n", PhaseSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.file, []byte(tt.data))
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.phase, PhaseOf(err), err.Error())
		})
	}
}

func TestParse_ToleratesAnnotations(t *testing.T) {
	p, err := Parse("plan.json", []byte(`{
  "version": 2,
  "operations": [
    {"run": ["create", "page", "A"], "capture": "", "note": "landing page", "retry": 3},
    {"run": ["page", "set", "A"], "owner": {"team": "design"}}
  ]
}`))
	require.NoError(t, err)
	require.Len(t, p.Operations, 2)
	assert.Equal(t, ir.Operation{Run: []string{"create", "page", "A"}}, p.Operations[0])
	assert.Empty(t, p.Operations[0].Capture)

	_, err = Check(p)
	assert.NoError(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "p.json")
	yamlPath := filepath.Join(dir, "p.YAML")
	require.NoError(t, os.WriteFile(jsonPath, []byte(validJSON), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(validYAML), 0o644))

	fromJSON, err := Load(jsonPath)
	require.NoError(t, err)
	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON.Operations, fromYAML.Operations)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Equal(t, PhaseRead, PhaseOf(err))
}

func TestIsYAML(t *testing.T) {
	assert.True(t, IsYAML("a.yaml"))
	assert.True(t, IsYAML("a.YML"))
	assert.False(t, IsYAML("a.json"))
	assert.False(t, IsYAML("yaml"))
}

func TestCheck(t *testing.T) {
	p, err := Parse("plan.json", []byte(validJSON))
	require.NoError(t, err)

	steps, err := Check(p)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, compiler.SetCurrentPageArgs{IDOrName: "dry_page_id"}, steps[1].Args)
}

func TestCheck_Rejects(t *testing.T) {
	tests := []struct {
		name string
		ops  []ir.Operation
		is   func(error) bool
	}{
		{"unsupported", []ir.Operation{{Run: []string{"delete", "node", "1:1"}}}, compiler.IsUnsupportedOperation},
		{"bad opacity", []ir.Operation{{Run: []string{"set", "opacity", "1:1", "x"}}}, compiler.IsInvalidArgument},
		{"too short", []ir.Operation{{Run: []string{"create"}}}, compiler.IsInvalidArgument},
		{"forward reference", []ir.Operation{
			{Run: []string{"page", "set", "{{later}}"}},
			{Run: []string{"create", "page", "P"}, Capture: "later"},
		}, executor.IsUnresolvedCapture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(ir.Plan{Operations: tt.ops})
			require.Error(t, err)
			assert.Equal(t, PhaseCompile, PhaseOf(err))
			assert.True(t, tt.is(err), err.Error())
		})
	}
}

func TestWarnings(t *testing.T) {
	p := ir.Plan{Operations: []ir.Operation{
		{Run: []string{"create", "page", "P"}, Capture: "p", IgnoreError: true},
		{Run: []string{"page", "set", "{{p}}"}},
		{Run: []string{"create", "page", "Q"}, Capture: "p"},
		{Run: []string{"page", "set", "{{p}}"}},
	}}
	got := Warnings(p)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "operation #2")
	assert.Contains(t, got[0], "operation #1")

	assert.Empty(t, Warnings(ir.Plan{}))
}

func TestSchemaSource(t *testing.T) {
	assert.Contains(t, SchemaSource(), "#Plan")
	assert.Contains(t, SchemaSource(), "#Operation")
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, SchemaID, doc["$id"])
	assert.Contains(t, doc, "$schema")

	defs, ok := doc["$defs"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, defs, "Plan")
	require.Contains(t, defs, "Operation")

	op := defs["Operation"].(map[string]any)
	assert.Equal(t, []any{"run"}, op["required"])
	props := op["properties"].(map[string]any)
	assert.Contains(t, props, "ignore_error")
}
