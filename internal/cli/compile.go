package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/executor"
	"github.com/roach88/figbridge/internal/plan"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
}

// CompileResult is the JSON payload of the compile command.
type CompileResult struct {
	Plan     string                 `json:"plan"`
	Steps    []DryRunLine           `json:"steps"`
	Captures *executor.CaptureStore `json:"captures"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <plan>",
		Short: "Show the commands a plan compiles to",
		Long: `Compile every operation of a plan without starting the bridge.

Captures resolve to the placeholder "dry_<name>", so later operations show
where captured node ids will be substituted. Unlike apply --dry-run, the
plan may live anywhere.

Example:
  figbridge compile plan.json
  figbridge compile plan.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd, args[0])
		},
	}

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)

	p, err := plan.Load(path)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodePlan, "invalid plan", err)
	}
	steps, captures, err := executor.DryRun(p)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodePlan, "compile failed", err)
	}

	if f.IsJSON() {
		lines := make([]DryRunLine, len(steps))
		for i, s := range steps {
			lines[i] = DryRunLine{Index: s.Index, Operation: s.Operation, Command: s.Kind, Args: s.Args}
		}
		return f.Success(CompileResult{Plan: path, Steps: lines, Captures: captures})
	}

	if err := printSteps(f, steps); err != nil {
		return err
	}
	data, err := MarshalIndent(captures)
	if err != nil {
		return err
	}
	f.Printf("Dry-run captures:\n%s", data)
	return nil
}
