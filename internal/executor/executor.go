package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/figbridge/internal/compiler"
	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/relay"
)

// DefaultOpTimeout bounds each dispatched command.
const DefaultOpTimeout = 30 * time.Second

// Dispatcher hands one command to the remote plugin and waits for its result.
// *relay.Relay implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind ir.Kind, args ir.Args, timeout time.Duration) (ir.Result, error)
}

// Recorder receives every dispatched command and its outcome.
type Recorder interface {
	Record(ctx context.Context, rec ir.CommandRecord) error
}

// Options configures an Executor. Zero values select defaults.
type Options struct {
	// OpTimeout bounds each command (default DefaultOpTimeout).
	OpTimeout time.Duration

	// ExpectedFileName and ExpectedFileKey, when set, must equal what the
	// status probe reports.
	ExpectedFileName string
	ExpectedFileKey  string

	Recorder Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Executor runs plans through a Dispatcher.
type Executor struct {
	dispatcher Dispatcher
	opts       Options
}

// New creates an executor.
func New(d Dispatcher, opts Options) *Executor {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Executor{dispatcher: d, opts: opts}
}

// Status is what the plugin reports about the open document.
type Status struct {
	FileName string         `json:"fileName"`
	FileKey  string         `json:"fileKey,omitempty"`
	Payload  map[string]any `json:"-"`
}

// Report summarizes a run. It is returned alongside errors too, holding the
// captures made before the failure.
type Report struct {
	Captures *CaptureStore
	Executed int
	Skipped  []int
}

// Preflight sends the status probe and checks the connected document.
func (e *Executor) Preflight(ctx context.Context) (Status, error) {
	res, err := e.dispatch(ctx, 0, "status", compiler.StatusArgs{})
	if err != nil {
		return Status{}, &RuntimeError{Code: ErrCodeRelayFailed, Message: "status probe", Operation: "status", Err: err}
	}
	if !res.OK {
		return Status{}, &RuntimeError{Code: ErrCodePreflightFailed, Message: "bridge status failed: " + res.Error, Operation: "status"}
	}

	st := Status{FileName: "unknown", Payload: res.Result}
	if s, ok := res.Result["fileName"].(string); ok {
		st.FileName = s
	}
	if s, ok := res.Result["fileKey"].(string); ok {
		st.FileKey = s
	}

	e.opts.Logger.Info("connected file", "file_name", st.FileName, "file_key", st.FileKey)

	if want := e.opts.ExpectedFileName; want != "" && st.FileName != want {
		return st, &RuntimeError{
			Code:      ErrCodeFileMismatch,
			Message:   fmt.Sprintf("connected file mismatch: expected %q, got %q", want, st.FileName),
			Operation: "status",
		}
	}
	if want := e.opts.ExpectedFileKey; want != "" && st.FileKey != want {
		return st, &RuntimeError{
			Code:      ErrCodeFileMismatch,
			Message:   fmt.Sprintf("connected file key mismatch: expected %q, got %q", want, st.FileKey),
			Operation: "status",
		}
	}
	return st, nil
}

// Run executes every operation of plan in order.
func (e *Executor) Run(ctx context.Context, plan ir.Plan) (*Report, error) {
	report := &Report{Captures: NewCaptureStore()}

	for i, op := range plan.Operations {
		index := i + 1
		name := op.Label(index)

		if err := e.runOne(ctx, report, index, name, op); err != nil {
			return report, err
		}
	}

	e.opts.Logger.Info("plan completed",
		"operations", len(plan.Operations),
		"executed", report.Executed,
		"skipped", len(report.Skipped),
		"captures", report.Captures.Len())
	return report, nil
}

func (e *Executor) runOne(ctx context.Context, report *Report, index int, name string, op ir.Operation) error {
	tokens, err := Substitute(op.Run, report.Captures)
	if err != nil {
		return at(err, index, name)
	}

	kind, args, err := compiler.Compile(tokens)
	if err != nil {
		return &RuntimeError{Code: ErrCodeCompileFailed, Message: "compile", Index: index, Operation: name, Err: err}
	}

	e.opts.Logger.Info("dispatching operation", "index", index, "name", name, "kind", kind)

	res, err := e.dispatch(ctx, index, name, args)
	if err != nil {
		if op.IgnoreError && relay.IsTimeout(err) {
			e.opts.Logger.Warn("ignored timeout", "index", index, "name", name, "error", err)
			report.Skipped = append(report.Skipped, index)
			return nil
		}
		return &RuntimeError{Code: ErrCodeRelayFailed, Message: "dispatch", Index: index, Operation: name, Err: err}
	}

	if !res.OK {
		if op.IgnoreError {
			e.opts.Logger.Warn("ignored error", "index", index, "name", name, "error", res.Error)
			report.Skipped = append(report.Skipped, index)
			return nil
		}
		return &RuntimeError{Code: ErrCodeRemoteOperationFailed, Message: "operation failed: " + res.Error, Index: index, Operation: name}
	}
	report.Executed++

	if op.Capture == "" {
		return nil
	}
	id, ok := ExtractID(res.Result)
	if !ok {
		return &RuntimeError{
			Code:      ErrCodeCaptureExtractionFailed,
			Message:   fmt.Sprintf("capture %q missing id from payload: %v", op.Capture, res.Result),
			Index:     index,
			Operation: name,
			Capture:   op.Capture,
		}
	}
	report.Captures.Set(op.Capture, id)
	e.opts.Logger.Info("captured", "name", op.Capture, "id", id)
	return nil
}

// dispatch sends one command and hands the exchange to the recorder.
func (e *Executor) dispatch(ctx context.Context, index int, name string, args ir.Args) (ir.Result, error) {
	started := e.opts.Now()
	res, err := e.dispatcher.Dispatch(ctx, args.Kind(), args, e.opts.OpTimeout)

	if e.opts.Recorder != nil {
		rec := ir.CommandRecord{
			Index:        index,
			Operation:    name,
			CommandID:    res.ID,
			Kind:         args.Kind(),
			Args:         args,
			OK:           err == nil && res.OK,
			Result:       res.Result,
			Error:        res.Error,
			DispatchedAt: started,
			CompletedAt:  e.opts.Now(),
		}
		if err != nil {
			rec.Error = err.Error()
			var re *relay.RelayError
			if errors.As(err, &re) {
				rec.CommandID = re.CommandID
			}
		}
		if rerr := e.opts.Recorder.Record(context.WithoutCancel(ctx), rec); rerr != nil {
			e.opts.Logger.Warn("recording command", "index", index, "error", rerr)
		}
	}
	return res, err
}
