package executor

import (
	"github.com/roach88/figbridge/internal/compiler"
	"github.com/roach88/figbridge/internal/ir"
)

// DryStep is one compiled operation of a dry run.
type DryStep struct {
	Index     int
	Operation string
	Kind      ir.Kind
	Args      ir.Args
}

// DryRun compiles plan without dispatching anything. Each capture resolves
// to the placeholder value "dry_<name>", so later operations compile as they
// would for real.
func DryRun(plan ir.Plan) ([]DryStep, *CaptureStore, error) {
	captures := NewCaptureStore()
	steps := make([]DryStep, 0, len(plan.Operations))

	for i, op := range plan.Operations {
		index := i + 1
		name := op.Label(index)

		tokens, err := Substitute(op.Run, captures)
		if err != nil {
			return steps, captures, at(err, index, name)
		}
		kind, args, err := compiler.Compile(tokens)
		if err != nil {
			return steps, captures, &RuntimeError{Code: ErrCodeCompileFailed, Message: "compile", Index: index, Operation: name, Err: err}
		}
		steps = append(steps, DryStep{Index: index, Operation: name, Kind: kind, Args: args})

		if op.Capture != "" {
			captures.Set(op.Capture, "dry_"+op.Capture)
		}
	}
	return steps, captures, nil
}
