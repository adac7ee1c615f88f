package workspace

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/figbridge/internal/ir"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My App", "my-app"},
		{"  Café Münchën  ", "cafe-munchen"},
		{"a//b??c", "a-b-c"},
		{"--_weird_--", "weird"},
		{"keep_under-score", "keep_under-score"},
		{"", "project"},
		{"!!!", "project"},
		{"登录", "project"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNormalizeTaskID(t *testing.T) {
	assert.Equal(t, "Task-42", NormalizeTaskID(" Task 42 "))
	assert.Equal(t, "a-b", NormalizeTaskID("a///b"))
	assert.Equal(t, "", NormalizeTaskID("  "))
	assert.Equal(t, "", NormalizeTaskID("@@"))
}

func TestGenerateTaskID(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 30, 5, 0, time.FixedZone("X", 3600))
	id := GenerateTaskID(now)
	assert.Regexp(t, regexp.MustCompile(`^task-20261019073005-[a-z0-9]{4}$`), id)
	assert.Equal(t, id, NormalizeTaskID(id))
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")

	assert.True(t, IsWithin(root, root))
	assert.True(t, IsWithin(filepath.Join(root, "a.json"), root))
	assert.True(t, IsWithin(filepath.Join(root, "x", "..", "a.json"), root))
	assert.True(t, IsWithin(filepath.Join(root, "..foo"), root))
	assert.False(t, IsWithin(filepath.Join(root, "..", "a.json"), root))
	assert.False(t, IsWithin(root+"-sibling", root))
	assert.False(t, IsWithin(filepath.Dir(root), root))
}

func TestOpen_CreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "auto-figma")
	r, err := Open(dir)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, r.Dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRoot_Confine(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)

	inside, err := r.Confine(filepath.Join(r.Dir, "plan.json"), "plan path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir, "plan.json"), inside)
	assert.True(t, r.Contains(inside))

	_, err = r.Confine(filepath.Join(r.Dir, "..", "escape.json"), "plan path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan path must be under temp root")
}

func TestRoot_Confine_FollowsSymlinks(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "root"))
	require.NoError(t, err)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.json"), []byte("{}"), 0o644))

	require.NoError(t, os.Symlink(outside, filepath.Join(r.Dir, "out")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.json"), filepath.Join(r.Dir, "plan.json")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing.json"), filepath.Join(r.Dir, "dangling.json")))
	require.NoError(t, os.Mkdir(filepath.Join(r.Dir, "sub"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(r.Dir, "sub"), filepath.Join(r.Dir, "alias")))

	tests := map[string]string{
		"file link":         filepath.Join(r.Dir, "plan.json"),
		"dir link":          filepath.Join(r.Dir, "out", "secret.json"),
		"new file via link": filepath.Join(r.Dir, "out", "captures.json"),
		"dangling link":     filepath.Join(r.Dir, "dangling.json"),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := r.Confine(path, "plan path")
			require.Error(t, err)
			assert.False(t, r.Contains(path))
		})
	}

	got, err := r.Confine(filepath.Join(r.Dir, "alias", "new", "captures.json"), "captures path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir, "sub", "new", "captures.json"), got)
}

func TestRoot_Paths(t *testing.T) {
	r := Root{Dir: "/tmp/auto-figma"}
	assert.Equal(t, filepath.Join("/tmp/auto-figma", "app_t1_captures.json"), r.CapturesPath("app", "t1"))
	assert.Equal(t, filepath.Join("/tmp/auto-figma", "app_t1_plan.json"), r.PlanPath("app", "t1"))
}

func TestCleanupTaskFiles(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"app_t1_plan.json", "app_t1_captures.json", "app_t2_plan.json", "other_t1_plan.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(r.Dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(r.Dir, "app_t1_dir"), 0o755))

	removed, err := r.CleanupTaskFiles("app", "t1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(r.Dir, "app_t1_plan.json"),
		filepath.Join(r.Dir, "app_t1_captures.json"),
	}, removed)

	left, err := os.ReadDir(r.Dir)
	require.NoError(t, err)
	var names []string
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"app_t1_dir", "app_t2_plan.json", "other_t1_plan.json"}, names)
}

func TestCleanupTaskFiles_Keep(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)

	plan := filepath.Join(r.Dir, "app_t1_plan.json")
	captures := r.CapturesPath("app", "t1")
	for _, p := range []string{plan, captures} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	}

	removed, err := r.CleanupTaskFiles("app", "t1", captures)
	require.NoError(t, err)
	assert.Equal(t, []string{plan}, removed)
	assert.FileExists(t, captures)
}

func TestCleanupTaskFiles_MissingRoot(t *testing.T) {
	r := Root{Dir: filepath.Join(t.TempDir(), "gone")}
	removed, err := r.CleanupTaskFiles("app", "t1")
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestResolveIdentity(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := ir.Plan{Meta: map[string]any{"project_name": " Shop App ", "task_id": "from-plan"}}

	id := ResolveIdentity("", "", plan, now)
	assert.Equal(t, Identity{Project: "Shop App", Slug: "shop-app", TaskID: "from-plan"}, id)

	id = ResolveIdentity("Other", "cli task", plan, now)
	assert.Equal(t, Identity{Project: "Other", Slug: "other", TaskID: "cli-task"}, id)

	id = ResolveIdentity("", "", ir.Plan{}, now)
	assert.Equal(t, "project", id.Project)
	assert.Equal(t, "project", id.Slug)
	assert.Regexp(t, `^task-20260101000000-[a-z0-9]{4}$`, id.TaskID)
}
