package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/roach88/figbridge/internal/executor"
	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/journal"
	"github.com/roach88/figbridge/internal/relay"
	"github.com/roach88/figbridge/internal/testutil"
)

const defaultOpTimeout = 2 * time.Second

// epoch is the frozen instant every scenario runs at.
var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh relay and an in-memory journal.
// A returned error means the scenario could not be executed at all (bad
// plan, journal failure); run failures the scenario expects are reported in
// the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	p, err := scenario.PlanDocument()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	jr, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer jr.Close()

	run, err := jr.BeginRun(ctx, journal.RunInfo{TaskID: scenario.Name, Project: "harness"})
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewManualClock(epoch)

	rl := relay.New(
		relay.WithIDGenerator(testutil.NewSequentialIDs("cmd")),
		relay.WithLogger(logger),
	)
	peer := testutil.NewPeer(testutil.DirectEndpoint{Relay: rl}, testutil.Scripted(scenario.script()...))
	stop := peer.Start(ctx)
	defer stop()

	timeout := scenario.OpTimeout
	if timeout == 0 {
		timeout = defaultOpTimeout
	}
	opts := executor.Options{
		OpTimeout: timeout,
		Recorder:  run,
		Logger:    logger,
		Now:       clock.Now,
	}
	if f := scenario.ExpectFile; f != nil {
		opts.ExpectedFileName = f.Name
		opts.ExpectedFileKey = f.Key
	}
	ex := executor.New(rl, opts)

	result := NewResult()
	runErr := execute(ctx, ex, scenario, p, result)
	result.Err = runErr
	result.ErrorCode = errorCode(runErr)

	if err := run.Finish(ctx, runErr); err != nil {
		return nil, err
	}

	_, cmds, err := jr.ReadRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range cmds {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:       c.Seq,
			Index:     c.Index,
			Operation: c.Operation,
			CommandID: c.CommandID,
			Command:   c.Kind,
			Args:      c.Args,
			OK:        c.OK,
			Result:    c.Result,
			Error:     c.Error,
		})
	}

	checkExpect(scenario.Expect, result)

	actx := &AssertionContext{Journal: jr, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// script lists the plugin's answers, the status probe's first.
func (s *Scenario) script() []ir.Result {
	out := make([]ir.Result, 0, len(s.Responses)+1)
	if s.Status != nil {
		out = append(out, ir.Result{OK: true, Result: s.Status})
	}
	for _, r := range s.Responses {
		out = append(out, ir.Result{OK: r.OK, Result: r.Result, Error: r.Error})
	}
	return out
}

func execute(ctx context.Context, ex *executor.Executor, scenario *Scenario, p ir.Plan, result *Result) error {
	if scenario.Status != nil {
		if _, err := ex.Preflight(ctx); err != nil {
			return err
		}
	}

	report, err := ex.Run(ctx, p)
	if report != nil {
		result.Captures = report.Captures.Map()
		result.Executed = report.Executed
		if report.Skipped != nil {
			result.Skipped = report.Skipped
		}
	}
	return err
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var re *executor.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "UNKNOWN"
}

func checkExpect(want Expect, result *Result) {
	if want.Error != result.ErrorCode {
		if result.Err != nil {
			result.AddError(fmt.Sprintf("expected error %q, got %q (%v)", want.Error, result.ErrorCode, result.Err))
		} else {
			result.AddError(fmt.Sprintf("expected error %q, run succeeded", want.Error))
		}
	}
	if want.Captures != nil && !reflect.DeepEqual(want.Captures, result.Captures) {
		result.AddError(fmt.Sprintf("expected captures %v, got %v", want.Captures, result.Captures))
	}
	if want.Executed != nil && *want.Executed != result.Executed {
		result.AddError(fmt.Sprintf("expected %d executed operations, got %d", *want.Executed, result.Executed))
	}
	if want.Skipped != nil && !reflect.DeepEqual(want.Skipped, result.Skipped) {
		result.AddError(fmt.Sprintf("expected skipped %v, got %v", want.Skipped, result.Skipped))
	}
}
