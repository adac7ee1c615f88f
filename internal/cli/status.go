package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/executor"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	bridge bridgeFlags

	ExpectedFileName string
	ExpectedFileKey  string
}

// StatusResult is the JSON payload of the status command.
type StatusResult struct {
	FileName string         `json:"file_name"`
	FileKey  string         `json:"file_key,omitempty"`
	Payload  map[string]any `json:"payload"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check which document the plugin is connected to",
		Long: `Start the bridge, wait for the plugin, and print its status payload.

Nothing is modified. Use --expected-file-name or --expected-file-key to fail
when the plugin is attached to a different document.

Example:
  figbridge status
  figbridge status --expected-file-name "Shop App" --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ExpectedFileName, "expected-file-name", "", "fail unless the connected document has exactly this name")
	cmd.Flags().StringVar(&opts.ExpectedFileKey, "expected-file-key", "", "fail unless the connected document has exactly this key")
	opts.bridge.registerListen(cmd)
	opts.bridge.registerTimeouts(cmd)

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	cfg, err := opts.bridge.resolve(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	sess, err := openSession(cfg, opts.Logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBridge, "failed to start bridge server", err)
	}
	f.Printf("Bridge server started at http://%s\n", sess.server.Addr())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex := executor.New(sess.relay, executor.Options{
		OpTimeout:        cfg.OpTimeout,
		ExpectedFileName: opts.ExpectedFileName,
		ExpectedFileKey:  opts.ExpectedFileKey,
		Logger:           opts.Logger,
	})

	var st executor.Status
	err = sess.run(ctx, func(ctx context.Context) error {
		if err := sess.waitForPlugin(ctx); err != nil {
			return err
		}
		f.Printf("Bridge plugin connected.\n")
		var err error
		st, err = ex.Preflight(ctx)
		return err
	})
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeRun, "status check failed", err)
	}

	payload := st.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	if f.IsJSON() {
		return f.Success(StatusResult{FileName: st.FileName, FileKey: st.FileKey, Payload: payload})
	}

	f.Printf("Connected file: %s\n", st.FileName)
	if st.FileKey != "" {
		f.Printf("Connected fileKey: %s\n", st.FileKey)
	}
	data, err := MarshalIndent(payload)
	if err != nil {
		return err
	}
	f.Printf("%s", data)
	return nil
}
