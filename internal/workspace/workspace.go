// Package workspace confines plan and capture files to one temp root and
// names them after the project and task they belong to.
//
// File names follow "<project-slug>_<task-id>_<suffix>", so every file of
// one task can be found, and removed, by prefix.
package workspace

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/figbridge/internal/ir"
)

// DirName is the temp root's directory name under the system temp dir.
const DirName = "auto-figma"

// DefaultProject is used when no project name can be determined.
const DefaultProject = "project"

const taskAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	unsafeRun  = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	dashRun    = regexp.MustCompile(`-{2,}`)
	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// DefaultTempRoot returns $TMPDIR/auto-figma.
func DefaultTempRoot() string {
	return filepath.Join(os.TempDir(), DirName)
}

// Root is a resolved, existing temp root.
type Root struct {
	Dir string
}

// Open resolves dir (DefaultTempRoot when empty) to an absolute,
// symlink-free path and creates it.
func Open(dir string) (Root, error) {
	if dir == "" {
		dir = DefaultTempRoot()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("resolve temp root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return Root{}, fmt.Errorf("create temp root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("resolve temp root: %w", err)
	}
	return Root{Dir: resolved}, nil
}

// Contains reports whether path resolves inside the root.
func (r Root) Contains(path string) bool {
	abs, err := resolve(path)
	return err == nil && IsWithin(abs, r.Dir)
}

// Confine resolves path and fails unless it lies inside the root.
func (r Root) Confine(path, what string) (string, error) {
	abs, err := resolve(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", what, err)
	}
	if !IsWithin(abs, r.Dir) {
		return "", fmt.Errorf("%s must be under temp root: %s", what, r.Dir)
	}
	return abs, nil
}

// resolve makes path absolute and follows symlinks. A path that does not
// exist yet is resolved through its nearest existing ancestor.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	var tail []string
	cur := abs
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			return "", fmt.Errorf("%s is a dangling symlink", cur)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// CapturesPath is where a task's capture map is written.
func (r Root) CapturesPath(slug, taskID string) string {
	return filepath.Join(r.Dir, Prefix(slug, taskID)+"captures.json")
}

// PlanPath is where a generated plan is written.
func (r Root) PlanPath(slug, taskID string) string {
	return filepath.Join(r.Dir, Prefix(slug, taskID)+"plan.json")
}

// CleanupTaskFiles removes the regular files directly under the root that
// belong to the task and returns their paths. Paths listed in keep survive.
// A missing root is not an error.
func (r Root) CleanupTaskFiles(slug, taskID string, keep ...string) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list temp root: %w", err)
	}

	prefix := Prefix(slug, taskID)
	var removed []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(r.Dir, e.Name())
		if slices.Contains(keep, path) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// Prefix is the file-name prefix shared by a task's files.
func Prefix(slug, taskID string) string {
	return slug + "_" + taskID + "_"
}

// IsWithin reports whether path is root or lies beneath it, after both are
// made absolute and cleaned.
func IsWithin(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Slugify lowercases name and reduces it to [a-z0-9_-]. Accented letters are
// folded to their base letter first. An empty result becomes DefaultProject.
func Slugify(name string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(name))
	if err != nil {
		folded = name
	}
	if s := strings.ToLower(clean(folded)); s != "" {
		return s
	}
	return DefaultProject
}

// NormalizeTaskID reduces id to [A-Za-z0-9_-], keeping case. It may return "".
func NormalizeTaskID(id string) string {
	return clean(strings.TrimSpace(id))
}

func clean(s string) string {
	s = unsafeRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// GenerateTaskID returns "task-YYYYmmddHHMMSS-xxxx" for now (in UTC).
func GenerateTaskID(now time.Time) string {
	var suffix [4]byte
	for i := range suffix {
		suffix[i] = taskAlphabet[rand.IntN(len(taskAlphabet))]
	}
	return "task-" + now.UTC().Format("20060102150405") + "-" + string(suffix[:])
}

// Identity names the project and task a run belongs to.
type Identity struct {
	Project string
	Slug    string
	TaskID  string
}

// ResolveIdentity picks the project and task for a plan. Explicit values win,
// then the plan's project_name and task_id metadata, then defaults (a fresh
// task id generated from now).
func ResolveIdentity(project, taskID string, plan ir.Plan, now time.Time) Identity {
	name := strings.TrimSpace(project)
	if name == "" {
		name = plan.MetaString("project_name")
	}
	if name == "" {
		name = DefaultProject
	}

	task := NormalizeTaskID(taskID)
	if task == "" {
		task = NormalizeTaskID(plan.MetaString("task_id"))
	}
	if task == "" {
		task = GenerateTaskID(now)
	}
	return Identity{Project: name, Slug: Slugify(name), TaskID: task}
}
