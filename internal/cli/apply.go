package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/executor"
	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/journal"
	"github.com/roach88/figbridge/internal/plan"
	"github.com/roach88/figbridge/internal/workspace"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	bridge bridgeFlags

	Plan             string
	DryRun           bool
	CapturesOut      string
	ProjectName      string
	TaskID           string
	ExpectedFileName string
	ExpectedFileKey  string
	NoCleanup        bool

	// Now is the clock used to generate task ids (default time.Now).
	Now func() time.Time
}

// ApplyResult is the JSON payload of a finished apply.
type ApplyResult struct {
	Project      string                 `json:"project"`
	Slug         string                 `json:"slug"`
	TaskID       string                 `json:"task_id"`
	TempRoot     string                 `json:"temp_root"`
	PlanPath     string                 `json:"plan_path"`
	FileName     string                 `json:"file_name,omitempty"`
	FileKey      string                 `json:"file_key,omitempty"`
	Captures     *executor.CaptureStore `json:"captures"`
	Executed     int                    `json:"executed"`
	Skipped      []int                  `json:"skipped,omitempty"`
	CapturesPath string                 `json:"captures_path,omitempty"`
	Cleaned      []string               `json:"cleaned,omitempty"`
	RunID        int64                  `json:"run_id,omitempty"`
	DryRun       []DryRunLine           `json:"dry_run,omitempty"`
}

// DryRunLine is one compiled operation of a dry run.
type DryRunLine struct {
	Index     int     `json:"index"`
	Operation string  `json:"operation"`
	Command   ir.Kind `json:"command"`
	Args      ir.Args `json:"args"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply --plan <plan.json>",
		Short: "Run a plan against the connected plugin",
		Long: `Run a plan against the design-tool plugin.

apply starts the bridge server, waits for the plugin to poll, checks the
connected document, then sends each operation in order. Node ids returned
by operations with a capture name replace {{name}} placeholders in later
operations. The final capture map is printed and written under the temp
root, and the task's intermediate files are removed.

The plan and captures paths must lie under the temp root.

Example:
  figbridge apply --plan /tmp/auto-figma/shop_task-1_plan.json
  figbridge apply --plan plan.json --dry-run
  figbridge apply --plan plan.json --expected-file-name "Shop App" --port 38451`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Plan, "plan", "", "path to the plan file (required)")
	_ = cmd.MarkFlagRequired("plan")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the compiled commands without starting the bridge")
	cmd.Flags().StringVar(&opts.CapturesOut, "captures-out", "", "captures output path (default <temp-root>/<project>_<task>_captures.json)")
	cmd.Flags().StringVar(&opts.ProjectName, "project-name", "", "project name used for temp file names")
	cmd.Flags().StringVar(&opts.TaskID, "task-id", "", "task id used to keep runs of one project apart")
	cmd.Flags().StringVar(&opts.ExpectedFileName, "expected-file-name", "", "fail unless the connected document has exactly this name")
	cmd.Flags().StringVar(&opts.ExpectedFileKey, "expected-file-key", "", "fail unless the connected document has exactly this key")
	cmd.Flags().BoolVar(&opts.NoCleanup, "no-cleanup-task-files", false, "keep the task's intermediate files after a successful run")
	opts.bridge.registerListen(cmd)
	opts.bridge.registerTimeouts(cmd)
	opts.bridge.registerTempRoot(cmd)
	opts.bridge.registerJournal(cmd)

	return cmd
}

func runApply(opts *ApplyOptions, cmd *cobra.Command) error {
	cfg, err := opts.bridge.resolve(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	root, err := workspace.Open(cfg.TempRoot)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWorkspace, "failed to prepare temp root", err)
	}
	planPath, err := root.Confine(opts.Plan, "plan path")
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWorkspace, "invalid plan path", err)
	}
	p, err := plan.Load(planPath)
	if err == nil {
		_, err = plan.Check(p)
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodePlan, "invalid plan", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	id := workspace.ResolveIdentity(opts.ProjectName, opts.TaskID, p, now())

	capturesPath := root.CapturesPath(id.Slug, id.TaskID)
	if opts.CapturesOut != "" {
		if capturesPath, err = root.Confine(opts.CapturesOut, "captures path"); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWorkspace, "invalid captures path", err)
		}
	}

	result := ApplyResult{
		Project:  id.Project,
		Slug:     id.Slug,
		TaskID:   id.TaskID,
		TempRoot: root.Dir,
		PlanPath: planPath,
	}

	if opts.DryRun {
		return outputDryRun(f, p, &result)
	}

	jr, err := openJournal(cfg, root.Dir)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	if jr != nil {
		defer jr.Close()
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exOpts := executor.Options{
		OpTimeout:        cfg.OpTimeout,
		ExpectedFileName: opts.ExpectedFileName,
		ExpectedFileKey:  opts.ExpectedFileKey,
		Logger:           opts.Logger,
	}
	var run *journal.Run
	if jr != nil {
		run, err = jr.BeginRun(ctx, journal.RunInfo{TaskID: id.TaskID, Project: id.Project, PlanPath: planPath})
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeJournal, "failed to start journal run", err)
		}
		exOpts.Recorder = run
		result.RunID = run.ID
	}
	finish := func(runErr error) {
		if run == nil {
			return
		}
		if err := run.Finish(context.Background(), runErr); err != nil {
			opts.Logger.Warn("finishing journal run", "run_id", run.ID, "error", err)
		}
	}

	sess, err := openSession(cfg, opts.Logger)
	if err != nil {
		finish(err)
		return f.Fail(ExitCommandError, ErrCodeBridge, "failed to start bridge server", err)
	}
	f.Printf("Bridge server started at http://%s\n", sess.server.Addr())
	printIdentity(f, &result)

	ex := executor.New(sess.relay, exOpts)

	var report *executor.Report
	runErr := sess.run(ctx, func(ctx context.Context) error {
		if err := sess.waitForPlugin(ctx); err != nil {
			return err
		}
		f.Printf("Bridge plugin connected.\n")

		st, err := ex.Preflight(ctx)
		result.FileName, result.FileKey = st.FileName, st.FileKey
		if st.FileName != "" {
			f.Printf("Connected file: %s\n", st.FileName)
		}
		if st.FileKey != "" {
			f.Printf("Connected fileKey: %s\n", st.FileKey)
		}
		if err != nil {
			return err
		}

		report, err = ex.Run(ctx, p)
		return err
	})

	finish(runErr)
	if runErr != nil {
		return f.Fail(ExitFailure, ErrCodeRun, "apply failed", runErr)
	}

	result.Captures = report.Captures
	result.Executed = report.Executed
	result.Skipped = report.Skipped

	data, err := MarshalIndent(report.Captures)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeRun, "failed to encode captures", err)
	}
	f.Printf("\nExecution completed.\n%s", data)

	if err := os.MkdirAll(filepath.Dir(capturesPath), 0o755); err != nil {
		return f.Fail(ExitFailure, ErrCodeWorkspace, "failed to write captures", err)
	}
	if err := os.WriteFile(capturesPath, data, 0o644); err != nil {
		return f.Fail(ExitFailure, ErrCodeWorkspace, "failed to write captures", err)
	}
	result.CapturesPath = capturesPath
	f.Printf("Capture map written: %s\n", capturesPath)

	if !opts.NoCleanup {
		removed, err := root.CleanupTaskFiles(id.Slug, id.TaskID, capturesPath)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeWorkspace, "failed to clean task files", err)
		}
		result.Cleaned = removed
		if len(removed) == 0 {
			f.Printf("No task temp files to clean.\n")
		} else {
			f.Printf("Cleaned task temp files:\n")
			for _, path := range removed {
				f.Printf("- %s\n", path)
			}
		}
	}

	if f.IsJSON() {
		return f.Success(result)
	}
	return nil
}

func printIdentity(f *OutputFormatter, r *ApplyResult) {
	f.Printf("Temp root: %s\n", r.TempRoot)
	f.Printf("Project: %s (%s)\n", r.Project, r.Slug)
	f.Printf("Task ID: %s\n", r.TaskID)
}

func outputDryRun(f *OutputFormatter, p ir.Plan, result *ApplyResult) error {
	steps, captures, err := executor.DryRun(p)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodePlan, "dry run failed", err)
	}

	result.Captures = captures
	result.DryRun = make([]DryRunLine, len(steps))
	for i, s := range steps {
		result.DryRun[i] = DryRunLine{Index: s.Index, Operation: s.Operation, Command: s.Kind, Args: s.Args}
	}
	if f.IsJSON() {
		return f.Success(result)
	}

	printIdentity(f, result)
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

// printSteps writes one "[NN] name: kind {args}" line per compiled step.
func printSteps(f *OutputFormatter, steps []executor.DryStep) error {
	f.Printf("Dry-run mapping:\n")
	for _, s := range steps {
		args, err := compactJSON(s.Args)
		if err != nil {
			return fmt.Errorf("encode args of operation #%d: %w", s.Index, err)
		}
		f.Printf("[%02d] %s: %s %s\n", s.Index, s.Operation, s.Kind, args)
	}
	return nil
}
