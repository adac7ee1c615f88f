// Package planner turns a UI markdown document into a bridge plan: one page,
// then one frame and one title per screen heading, laid out left to right.
package planner

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/figbridge/internal/ir"
)

// Device is a frame size preset.
type Device struct {
	Width  int
	Height int
}

// Devices are the supported frame presets.
var Devices = map[string]Device{
	"ios":     {390, 844},
	"android": {412, 915},
	"web":     {1440, 1024},
	"ipad":    {1024, 1366},
}

// DeviceNames returns preset names in sorted order.
func DeviceNames() []string {
	names := make([]string, 0, len(Devices))
	for n := range Devices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const (
	DefaultDevice     = "ios"
	DefaultMaxScreens = 12
	DefaultXGap       = 120
	maxScreenName     = 80
	fallbackScreen    = "Main Screen"
	generatorName     = "figbridge generate"
)

// Options controls plan generation.
type Options struct {
	Project    string
	Slug       string
	TaskID     string
	SourceDoc  string
	PageName   string // default "AUTO-<slug>"
	Device     string // default DefaultDevice
	MaxScreens int    // default DefaultMaxScreens
	XGap       int    // default DefaultXGap
	// FullRefresh regenerates every screen; otherwise Changed selects the
	// screens to rebuild.
	FullRefresh bool
	Changed     []string
}

// ScreenAlias is the capture name of the n-th (1-based) screen frame.
func ScreenAlias(n int) string {
	return fmt.Sprintf("screen_%02d", n)
}

// SelectScreens applies the incremental filter and the screen limit to the
// document's headings.
func SelectScreens(headings []string, opts Options) ([]string, error) {
	if !opts.FullRefresh && len(opts.Changed) == 0 {
		return nil, fmt.Errorf("incremental mode requires changed headings; use full refresh only for an initial build or a global refactor")
	}

	pool := headings
	if !opts.FullRefresh {
		pool = FilterIncremental(headings, opts.Changed)
		if len(pool) == 0 {
			return nil, fmt.Errorf("no matching screens found for incremental update; check the changed headings")
		}
	}

	limit := opts.MaxScreens
	if limit <= 0 {
		limit = DefaultMaxScreens
	}

	screens := make([]string, 0, len(pool))
	for _, s := range pool {
		if r := []rune(s); len(r) > maxScreenName {
			s = string(r[:maxScreenName])
		}
		screens = append(screens, s)
	}
	if len(screens) == 0 {
		return []string{fallbackScreen}, nil
	}
	if len(screens) > limit {
		screens = screens[:limit]
	}
	return screens, nil
}

// Build creates the plan for screens.
func Build(screens []string, opts Options) (ir.Plan, error) {
	deviceName := opts.Device
	if deviceName == "" {
		deviceName = DefaultDevice
	}
	device, ok := Devices[deviceName]
	if !ok {
		return ir.Plan{}, fmt.Errorf("unknown device %q (choose from %v)", deviceName, DeviceNames())
	}
	xGap := opts.XGap
	if xGap == 0 {
		xGap = DefaultXGap
	}
	pageName := opts.PageName
	if pageName == "" {
		pageName = "AUTO-" + opts.Slug
	}
	mode := "incremental"
	if opts.FullRefresh {
		mode = "full-refresh"
	}
	changed := opts.Changed
	if changed == nil {
		changed = []string{}
	}

	ops := []ir.Operation{
		{Name: "create-page", Run: []string{"create", "page", pageName, "--json"}, Capture: "page_id"},
		{Name: "set-page", Run: []string{"page", "set", pageName}},
	}

	w, h := strconv.Itoa(device.Width), strconv.Itoa(device.Height)
	cursorX := 0
	for i, screen := range screens {
		n := i + 1
		alias := ScreenAlias(n)
		frameName := fmt.Sprintf("S%02d-%s", n, screen)

		ops = append(ops,
			ir.Operation{
				Name: fmt.Sprintf("create-frame-%02d", n),
				Run: []string{
					"create", "frame",
					"--name", frameName,
					"--x", strconv.Itoa(cursorX), "--y", "0",
					"--width", w, "--height", h,
					"--fill", "#FFFFFF",
					"--layout", "VERTICAL", "--gap", "16", "--padding", "24",
					"--json",
				},
				Capture: alias,
			},
			ir.Operation{
				Name: fmt.Sprintf("create-title-%02d", n),
				Run: []string{
					"create", "text",
					"--name", "ScreenTitle",
					"--x", "24", "--y", "24",
					"--text", frameName,
					"--font-size", "24",
					"--fill", "#111111",
					"--parent", "{{" + alias + "}}",
					"--json",
				},
				Capture: alias + "_title",
			},
		)
		cursorX += device.Width + xGap
	}

	return ir.Plan{
		Meta: map[string]any{
			"generator":        generatorName,
			"source_doc":       opts.SourceDoc,
			"project_name":     opts.Project,
			"project_slug":     opts.Slug,
			"task_id":          opts.TaskID,
			"mode":             mode,
			"changed_headings": changed,
			"page_name":        pageName,
			"screen_count":     len(screens),
			"device":           deviceName,
			"frame_size":       map[string]any{"width": device.Width, "height": device.Height},
		},
		Operations: ops,
	}, nil
}
