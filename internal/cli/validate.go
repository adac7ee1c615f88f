package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/plan"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateResult reports the outcome for one plan file.
type ValidateResult struct {
	Path       string   `json:"path"`
	Valid      bool     `json:"valid"`
	Phase      string   `json:"phase,omitempty"`
	Error      string   `json:"error,omitempty"`
	Operations int      `json:"operations"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <plan>...",
		Short: "Check plans against the schema and the compiler",
		Long: `Validate one or more plan files.

Each plan is decoded (JSON, or YAML for .yaml/.yml), checked against the
plan schema and compiled with placeholder captures. Warnings flag legal
but suspicious plans, such as using a capture from an operation that may
be skipped by ignore_error.

Example:
  figbridge validate plan.json
  figbridge validate plans/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd, args)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command, paths []string) error {
	f := opts.formatter(cmd)

	results := make([]ValidateResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		r := validateOne(path)
		if !r.Valid {
			failed++
		}
		results = append(results, r)
	}

	if f.IsJSON() {
		if err := f.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if !r.Valid {
				f.Printf("FAIL %s: %s\n", r.Path, r.Error)
				continue
			}
			f.Printf("OK   %s (%d operations)\n", r.Path, r.Operations)
			for _, w := range r.Warnings {
				f.Printf("     warning: %s\n", w)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateOne(path string) ValidateResult {
	r := ValidateResult{Path: path}

	p, err := plan.Load(path)
	if err == nil {
		r.Operations = len(p.Operations)
		_, err = plan.Check(p)
	}
	if err != nil {
		r.Phase = string(plan.PhaseOf(err))
		r.Error = err.Error()
		return r
	}

	r.Valid = true
	r.Warnings = plan.Warnings(p)
	return r
}
