// Package plan reads plan files and rejects malformed ones before anything is
// sent to the plugin.
//
// Validation runs in two stages. The document is first unified with the
// embedded CUE #Plan definition, which fixes its shape (operations is a list,
// every run is a list of strings, no unknown keys). Each operation is then
// compiled with "dry_<name>" capture values to catch unsupported verb pairs
// and bad arguments.
package plan

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/figbridge/internal/executor"
	"github.com/roach88/figbridge/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// SchemaSource returns the CUE definition plans are checked against.
func SchemaSource() string {
	return schemaSource
}

// Load reads and structurally validates the plan at path. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON.
func Load(path string) (ir.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ir.Plan{}, &ValidationError{Phase: PhaseRead, Message: err.Error(), Err: err}
	}
	return Parse(path, data)
}

// IsYAML reports whether name has a YAML extension.
func IsYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Parse validates data against the plan schema and decodes it. name is used
// for error positions and to pick the format.
func Parse(name string, data []byte) (ir.Plan, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return ir.Plan{}, fmt.Errorf("compile plan schema: %w", err)
	}

	doc, err := build(ctx, name, data)
	if err != nil {
		return ir.Plan{}, err
	}

	if !doc.LookupPath(cue.ParsePath("operations")).Exists() {
		return ir.Plan{}, &ValidationError{Phase: PhaseSchema, Path: "operations", Message: "operations must be a list"}
	}

	unified := schema.LookupPath(cue.ParsePath("#Plan")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return ir.Plan{}, schemaError(name, err)
	}

	var p ir.Plan
	if IsYAML(name) {
		err = yaml.Unmarshal(data, &p)
	} else {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return ir.Plan{}, &ValidationError{Phase: PhaseParse, Message: err.Error(), Err: err}
	}

	for i, op := range p.Operations {
		if op.Run == nil {
			return ir.Plan{}, &ValidationError{
				Phase:   PhaseSchema,
				Path:    fmt.Sprintf("operations.%d.run", i),
				Message: fmt.Sprintf("operation #%d invalid run tokens", i+1),
			}
		}
	}
	return p, nil
}

func build(ctx *cue.Context, name string, data []byte) (cue.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return cue.Value{}, &ValidationError{Phase: PhaseParse, Message: "empty plan document"}
	}

	var v cue.Value
	if IsYAML(name) {
		f, err := cueyaml.Extract(name, data)
		if err != nil {
			return cue.Value{}, parseError(err)
		}
		v = ctx.BuildFile(f)
	} else {
		expr, err := cuejson.Extract(name, data)
		if err != nil {
			return cue.Value{}, parseError(err)
		}
		v = ctx.BuildExpr(expr)
	}
	if err := v.Err(); err != nil {
		return cue.Value{}, parseError(err)
	}
	if v.Kind() != cue.StructKind {
		return cue.Value{}, &ValidationError{Phase: PhaseSchema, Message: "plan must be an object"}
	}
	return v, nil
}

func parseError(err error) error {
	ve := &ValidationError{Phase: PhaseParse, Message: err.Error(), Err: err}
	if pos := cueerrors.Positions(err); len(pos) > 0 {
		ve.Pos = pos[0]
	}
	return ve
}

// schemaError reports the first CUE error, preferring a position inside the
// plan file over one inside the schema.
func schemaError(name string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Phase: PhaseSchema, Message: err.Error(), Err: err}
	}

	first := errs[0]
	ve := &ValidationError{
		Phase:   PhaseSchema,
		Path:    strings.Join(first.Path(), "."),
		Message: first.Error(),
		Err:     err,
	}
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() == name {
			ve.Pos = pos
			break
		}
	}
	return ve
}

// Check compiles every operation without dispatching, so unsupported verb
// pairs, bad arguments and references to captures no earlier operation
// defines are reported before a run starts.
func Check(p ir.Plan) ([]executor.DryStep, error) {
	steps, _, err := executor.DryRun(p)
	if err != nil {
		return steps, &ValidationError{Phase: PhaseCompile, Message: err.Error(), Err: err}
	}
	return steps, nil
}

// Warnings lists plan smells that are legal but likely mistakes.
func Warnings(p ir.Plan) []string {
	var out []string
	ignorable := make(map[string]int)
	for i, op := range p.Operations {
		index := i + 1
		for _, name := range executor.Placeholders(op.Run) {
			if at, ok := ignorable[name]; ok {
				out = append(out, fmt.Sprintf("operation #%d uses capture %q from operation #%d, which may be skipped by ignore_error", index, name, at))
			}
		}
		if op.Capture == "" {
			continue
		}
		if op.IgnoreError {
			ignorable[op.Capture] = index
		} else {
			delete(ignorable, op.Capture)
		}
	}
	return out
}
