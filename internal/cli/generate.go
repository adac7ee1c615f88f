package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/planner"
	"github.com/roach88/figbridge/internal/workspace"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	bridge bridgeFlags

	Input           string
	Output          string
	Device          string
	ProjectName     string
	TaskID          string
	PageName        string
	MaxScreens      int
	XGap            int
	ChangedHeadings string
	FullRefresh     bool

	// Now is the clock used to generate task ids (default time.Now).
	Now func() time.Time
}

// GenerateResult is the JSON payload of the generate command.
type GenerateResult struct {
	PlanPath string   `json:"plan_path"`
	TempRoot string   `json:"temp_root"`
	Project  string   `json:"project"`
	Slug     string   `json:"slug"`
	TaskID   string   `json:"task_id"`
	Mode     string   `json:"mode"`
	PageName string   `json:"page_name"`
	Screens  []string `json:"screens"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate --input <ui.md>",
		Short: "Generate a plan from a UI markdown document",
		Long: `Generate a plan with one frame and title per screen heading.

Screen headings are the document's level 2 and 3 headings, minus sections
such as overview or notes. Incremental mode (the default) rebuilds only the
screens named by --changed-headings; --full-refresh rebuilds all of them.

The plan is written under the temp root as <project>_<task>_plan.json unless
--output names another path under the temp root.

Example:
  figbridge generate --input docs/ui.md --full-refresh --project-name "Shop App"
  figbridge generate --input docs/ui.md --changed-headings "Login, Cart" --device web`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "path to the UI markdown document (required)")
	_ = cmd.MarkFlagRequired("input")
	cmd.Flags().StringVar(&opts.Output, "output", "", "plan output path (must be under the temp root)")
	cmd.Flags().StringVar(&opts.Device, "device", planner.DefaultDevice, "frame size preset ("+strings.Join(planner.DeviceNames(), "|")+")")
	cmd.Flags().StringVar(&opts.ProjectName, "project-name", "", "project name (default the input's directory name)")
	cmd.Flags().StringVar(&opts.TaskID, "task-id", "", "task id used to keep runs of one project apart")
	cmd.Flags().StringVar(&opts.PageName, "page-name", "", "target page name (default AUTO-<project>)")
	cmd.Flags().IntVar(&opts.MaxScreens, "max-screens", planner.DefaultMaxScreens, "maximum number of screens")
	cmd.Flags().IntVar(&opts.XGap, "x-gap", planner.DefaultXGap, "horizontal gap between frames")
	cmd.Flags().StringVar(&opts.ChangedHeadings, "changed-headings", "", "comma-separated headings to rebuild")
	cmd.Flags().BoolVar(&opts.FullRefresh, "full-refresh", false, "rebuild every screen")
	opts.bridge.registerTempRoot(cmd)

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	cfg, err := opts.bridge.resolve(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)

	input, err := filepath.Abs(opts.Input)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWorkspace, "invalid input path", err)
	}
	markdown, err := os.ReadFile(input)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWorkspace, "input not found", err)
	}

	changed := planner.ParseChanged(opts.ChangedHeadings)
	popts := planner.Options{
		SourceDoc:   input,
		Device:      opts.Device,
		MaxScreens:  opts.MaxScreens,
		XGap:        opts.XGap,
		FullRefresh: opts.FullRefresh,
		Changed:     changed,
	}
	screens, err := planner.SelectScreens(planner.ExtractHeadings(string(markdown)), popts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodePlan, "no screens selected", err)
	}

	project := strings.TrimSpace(opts.ProjectName)
	if project == "" {
		project = filepath.Base(filepath.Dir(input))
	}
	if project == "" || project == "." || project == string(filepath.Separator) {
		project = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	taskID := workspace.NormalizeTaskID(opts.TaskID)
	if taskID == "" {
		taskID = workspace.GenerateTaskID(now())
	}
	popts.Project = project
	popts.Slug = workspace.Slugify(project)
	popts.TaskID = taskID
	popts.PageName = strings.TrimSpace(opts.PageName)
	if popts.PageName == "" {
		popts.PageName = "AUTO-" + popts.Slug
	}

	root, err := workspace.Open(cfg.TempRoot)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWorkspace, "failed to prepare temp root", err)
	}
	outPath := root.PlanPath(popts.Slug, taskID)
	if opts.Output != "" {
		if outPath, err = root.Confine(opts.Output, "output path"); err != nil {
			return f.Fail(ExitCommandError, ErrCodeWorkspace, "invalid output path", err)
		}
	}

	p, err := planner.Build(screens, popts)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodePlan, "failed to build plan", err)
	}
	data, err := MarshalIndent(p)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodePlan, "failed to encode plan", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return f.Fail(ExitFailure, ErrCodeWorkspace, "failed to write plan", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return f.Fail(ExitFailure, ErrCodeWorkspace, "failed to write plan", err)
	}

	mode := "incremental"
	if opts.FullRefresh {
		mode = "full-refresh"
	}
	result := GenerateResult{
		PlanPath: outPath,
		TempRoot: root.Dir,
		Project:  project,
		Slug:     popts.Slug,
		TaskID:   taskID,
		Mode:     mode,
		PageName: popts.PageName,
		Screens:  screens,
	}
	if f.IsJSON() {
		return f.Success(result)
	}

	f.Printf("Generated plan: %s\n", result.PlanPath)
	f.Printf("Temp root: %s\n", result.TempRoot)
	f.Printf("Project: %s (%s)\n", result.Project, result.Slug)
	f.Printf("Task ID: %s\n", result.TaskID)
	f.Printf("Mode: %s\n", result.Mode)
	f.Printf("Page name: %s\n", result.PageName)
	f.Printf("Screens: %d\n", len(screens))
	for i, s := range screens {
		f.Printf("  %02d. %s\n", i+1, s)
	}
	return nil
}
