package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/targets"
)

// TargetsOptions holds flags for the targets command.
type TargetsOptions struct {
	*RootOptions
	Endpoint string
}

// NewTargetsCommand creates the targets command.
func NewTargetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TargetsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List design documents open in the desktop client",
		Long: `List design documents open in the desktop client.

The client must expose a remote-debugging /json listing. The first document
listed is the current candidate: the tab the client focused most recently.
Use its name or key with apply --expected-file-name/--expected-file-key.

Example:
  figbridge targets
  figbridge targets --endpoint http://127.0.0.1:9333/json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "CDP listing URL (default from config, "+targets.DefaultEndpoint+")")

	return cmd
}

func runTargets(opts *TargetsOptions, cmd *cobra.Command) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	f := opts.formatter(cmd)

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = opts.Config.CDPEndpoint
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	listing, err := targets.NewClient(endpoint).List(ctx)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeTargets, "failed to list open documents", err)
	}

	if f.IsJSON() {
		return f.Success(listing)
	}
	if listing.Count == 0 {
		f.Printf("No open design/file tabs detected.\n")
		return nil
	}

	f.Printf("Open files: %d\n", listing.Count)
	if c := listing.Current; c != nil {
		f.Printf("Current candidate: %s (fileKey=%s)\n", c.Title, c.FileKey)
	}
	f.Printf("\n")
	for i, file := range listing.Files {
		f.Printf("%d. %s\n", i+1, file.Title)
		f.Printf("   fileKey: %s\n", file.FileKey)
		f.Printf("   url: %s\n", file.URL)
	}
	return nil
}
