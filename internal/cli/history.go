package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/config"
	"github.com/roach88/figbridge/internal/journal"
	"github.com/roach88/figbridge/internal/workspace"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	bridge bridgeFlags
	Limit  int
}

// HistoryRun is the JSON payload for a single run.
type HistoryRun struct {
	Run      journal.RunSummary     `json:"run"`
	Commands []journal.CommandEntry `json:"commands"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled runs",
		Long: `Show runs recorded in the journal.

Without arguments the most recent runs are listed. With a run id every
command of that run is shown with its arguments and result.

Example:
  figbridge history
  figbridge history 12 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd, args)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of runs to list (0 lists all)")
	opts.bridge.registerTempRoot(cmd)
	opts.bridge.registerJournal(cmd)

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command, args []string) error {
	cfg, err := opts.bridge.resolve(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	if cfg.Journal == config.JournalDisabled {
		return f.Fail(ExitCommandError, ErrCodeJournal, "journal is disabled", nil)
	}
	root, err := workspace.Open(cfg.TempRoot)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWorkspace, "failed to prepare temp root", err)
	}
	jr, err := openJournal(cfg, root.Dir)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer jr.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeJournal, "invalid run id", err)
		}
		return showRun(ctx, f, jr, id)
	}

	runs, err := jr.ListRuns(ctx, opts.Limit)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeJournal, "failed to list runs", err)
	}
	if f.IsJSON() {
		if runs == nil {
			runs = []journal.RunSummary{}
		}
		return f.Success(runs)
	}
	if len(runs) == 0 {
		f.Printf("No runs recorded.\n")
		return nil
	}
	f.Printf("%-6s %-10s %-20s %-8s %s\n", "ID", "STATUS", "STARTED", "COMMANDS", "PROJECT/TASK")
	for _, r := range runs {
		f.Printf("%-6d %-10s %-20s %-8d %s/%s\n", r.ID, r.Status, r.StartedAt.Format(time.DateTime), r.Commands, r.Project, r.TaskID)
	}
	return nil
}

func showRun(ctx context.Context, f *OutputFormatter, jr *journal.Journal, id int64) error {
	run, cmds, err := jr.ReadRun(ctx, id)
	if errors.Is(err, journal.ErrRunNotFound) {
		return f.Fail(ExitFailure, ErrCodeJournal, fmt.Sprintf("run %d not found", id), nil)
	}
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeJournal, "failed to read run", err)
	}
	if cmds == nil {
		cmds = []journal.CommandEntry{}
	}
	if f.IsJSON() {
		return f.Success(HistoryRun{Run: run, Commands: cmds})
	}

	f.Printf("Run %d: %s\n", run.ID, run.Status)
	f.Printf("Project: %s\n", run.Project)
	f.Printf("Task ID: %s\n", run.TaskID)
	if run.PlanPath != "" {
		f.Printf("Plan: %s\n", run.PlanPath)
	}
	f.Printf("Started: %s\n", run.StartedAt.Format(time.DateTime))
	if run.FinishedAt != nil {
		f.Printf("Finished: %s\n", run.FinishedAt.Format(time.DateTime))
	}
	if run.Error != "" {
		f.Printf("Error: %s\n", run.Error)
	}
	f.Printf("\n")
	for _, c := range cmds {
		outcome := "ok"
		if !c.OK {
			outcome = "FAILED: " + c.Error
		}
		f.Printf("[%02d] %s: %s %s -> %s\n", c.Index, c.Operation, c.Kind, c.Args, outcome)
		if len(c.Result) > 0 {
			f.Printf("     result: %s\n", c.Result)
		}
	}
	return nil
}
