package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	bridge bridgeFlags
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the bridge without running a plan",
		Long: `Host the bridge until interrupted.

The plugin can poll the relay while nothing is queued; this is useful for
checking that the plugin reaches the bridge at all.

Example:
  figbridge serve --port 38451`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	opts.bridge.registerListen(cmd)

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.bridge.resolve(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	sess, err := openSession(cfg, opts.Logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBridge, "failed to start bridge server", err)
	}
	f.Printf("Bridge server listening at http://%s\n", sess.server.Addr())
	f.Printf("Press Ctrl-C to stop.\n")

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sess.run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBridge, "bridge server failed", err)
	}
	if f.IsJSON() {
		return f.Success(map[string]any{"addr": sess.server.Addr(), "last_poll": sess.relay.LastPoll()})
	}
	return nil
}
