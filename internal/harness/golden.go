package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/figbridge/internal/ir"
)

// outcome is the last line of a golden trace.
type outcome struct {
	Captures map[string]string `json:"captures"`
	Executed int               `json:"executed"`
	Skipped  []int             `json:"skipped"`
	Error    string            `json:"error,omitempty"`
}

// Snapshot renders a result as golden-file text: a header line naming the
// scenario, one canonical JSON line per trace event, then the outcome.
func Snapshot(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer

	header, err := ir.MarshalCanonical(map[string]any{"scenario": name})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, event := range result.Trace {
		line, err := ir.MarshalCanonical(event)
		if err != nil {
			return nil, fmt.Errorf("trace seq %d: %w", event.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tail, err := ir.MarshalCanonical(outcome{
		Captures: result.Captures,
		Executed: result.Executed,
		Skipped:  result.Skipped,
		Error:    result.ErrorCode,
	})
	if err != nil {
		return nil, err
	}
	buf.Write(tail)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	snap, err := Snapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snap)
	return result, nil
}
