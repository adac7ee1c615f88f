package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/plan"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Kind string // "cue" | "json"
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the plan schema",
		Long: `Print the schema plans are validated against.

--kind cue prints the CUE definition used by validate and apply.
--kind json prints an equivalent JSON Schema for editors.

Example:
  figbridge schema
  figbridge schema --kind json > plan.schema.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "cue", "schema flavor (cue|json)")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	switch opts.Kind {
	case "cue":
		_, err := fmt.Fprint(out, plan.SchemaSource())
		return err
	case "json":
		data, err := plan.JSONSchema()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to build JSON Schema", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be cue or json", opts.Kind))
	}
}
