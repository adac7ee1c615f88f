package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/plan"
)

// Scenario defines one scripted bridge run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Status, when set, is the plugin's answer to the preflight status probe.
	// The probe is skipped when Status is nil.
	Status map[string]any `yaml:"status,omitempty"`

	// ExpectFile is forwarded to the executor as the expected document.
	ExpectFile *ExpectFile `yaml:"expect_file,omitempty"`

	// Plan is the plan document, validated exactly as a plan file would be.
	Plan yaml.Node `yaml:"plan"`

	// Responses are the plugin's answers in dispatch order.
	Responses []Response `yaml:"responses"`

	// Expect describes the run outcome.
	Expect Expect `yaml:"expect"`

	// Assertions validate the trace and the journal.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// OpTimeout bounds each command; defaults to two seconds.
	OpTimeout time.Duration `yaml:"op_timeout,omitempty"`
}

// ExpectFile names the document the preflight must find.
type ExpectFile struct {
	Name string `yaml:"name,omitempty"`
	Key  string `yaml:"key,omitempty"`
}

// Response is one scripted plugin answer.
type Response struct {
	OK     bool           `yaml:"ok"`
	Result map[string]any `yaml:"result,omitempty"`
	Error  string         `yaml:"error,omitempty"`
}

// Expect is the expected run outcome. Unset fields are not checked.
type Expect struct {
	// Error is the expected executor error code, e.g. REMOTE_OPERATION_FAILED.
	// Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`

	// Captures must equal the final capture table exactly.
	Captures map[string]string `yaml:"captures,omitempty"`

	Executed *int  `yaml:"executed,omitempty"`
	Skipped  []int `yaml:"skipped,omitempty"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type selects the check:
	// - "trace_contains": a command of the given kind whose args contain Args
	// - "trace_order": the given command kinds appear in this order
	// - "trace_count": the given command kind appears exactly Count times
	// - "journal_row": exactly one journal row matches Where and holds Expect
	Type string `yaml:"type"`

	// Command is the command kind (trace_contains, trace_count).
	Command string `yaml:"command,omitempty"`

	// Args is a subset match on the command arguments (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Commands is the expected order (trace_order).
	Commands []string `yaml:"commands,omitempty"`

	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect drive journal_row.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertJournalRow    = "journal_row"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// PlanDocument validates and decodes the scenario's plan.
func (s *Scenario) PlanDocument() (ir.Plan, error) {
	data, err := yaml.Marshal(&s.Plan)
	if err != nil {
		return ir.Plan{}, fmt.Errorf("encode plan: %w", err)
	}
	return plan.Parse(s.Name+".yaml", data)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Plan.Kind == 0 {
		return fmt.Errorf("plan is required")
	}
	if s.OpTimeout < 0 {
		return fmt.Errorf("op_timeout must be non-negative")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertJournalRow:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for journal_row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for journal_row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
