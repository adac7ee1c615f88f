package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/figbridge/internal/compiler"
	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/relay"
	"github.com/roach88/figbridge/internal/testutil"
)

// startPeer wires a relay to a scripted in-process peer.
func startPeer(t *testing.T, respond testutil.Responder) (*relay.Relay, *testutil.Peer) {
	t.Helper()
	r := relay.New(relay.WithIDGenerator(testutil.NewSequentialIDs("cmd")))
	peer := testutil.NewPeer(testutil.DirectEndpoint{Relay: r}, respond)
	stop := peer.Start(context.Background())
	t.Cleanup(stop)
	return r, peer
}

func ok(result map[string]any) ir.Result {
	return ir.Result{OK: true, Result: result}
}

func fail(msg string) ir.Result {
	return ir.Result{OK: false, Error: msg}
}

func TestRun_TwoOperationsThreadCapture(t *testing.T) {
	r, peer := startPeer(t, testutil.Scripted(
		ok(map[string]any{"nodeId": "1:1"}),
		ok(map[string]any{"nodeId": "1:2"}),
	))

	plan := ir.Plan{Operations: []ir.Operation{
		{Run: []string{"create", "frame", "--name", "F"}, Capture: "f"},
		{Run: []string{"create", "text", "--text", "hi", "--parent", "{{f}}"}},
	}}

	report, err := New(r, Options{OpTimeout: 5 * time.Second}).Run(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"f": "1:1"}, report.Captures.Map())
	assert.Equal(t, 2, report.Executed)
	assert.Empty(t, report.Skipped)

	received := peer.Received()
	require.Len(t, received, 2)
	assert.Equal(t, ir.KindCreateFrame, received[0].Kind)
	assert.Equal(t, "F", received[0].Args["name"])
	assert.Equal(t, ir.KindCreateText, received[1].Kind)
	assert.Equal(t, "1:1", received[1].Args["parentId"])
	assert.Equal(t, "hi", received[1].Args["text"])
}

func ignorablePlan(ignore bool) ir.Plan {
	return ir.Plan{Operations: []ir.Operation{
		{Name: "page", Run: []string{"create", "page", "Home"}},
		{Name: "fill", Run: []string{"set", "fill", "1:1", "#000000"}, IgnoreError: ignore},
		{Name: "text", Run: []string{"set", "text", "1:2", "Hello"}},
	}}
}

func TestRun_IgnoreErrorContinues(t *testing.T) {
	r, peer := startPeer(t, testutil.Scripted(ok(nil), fail("x"), ok(nil)))

	report, err := New(r, Options{OpTimeout: 5 * time.Second}).Run(context.Background(), ignorablePlan(true))
	require.NoError(t, err)

	assert.Equal(t, []int{2}, report.Skipped)
	assert.Equal(t, 2, report.Executed)
	require.Len(t, peer.Received(), 3)
	assert.Equal(t, ir.KindSetText, peer.Received()[2].Kind)
}

func TestRun_ErrorAbortsWithoutIgnore(t *testing.T) {
	r, peer := startPeer(t, testutil.Scripted(ok(nil), fail("x"), ok(nil)))

	_, err := New(r, Options{OpTimeout: 5 * time.Second}).Run(context.Background(), ignorablePlan(false))
	require.Error(t, err)
	assert.True(t, IsRemoteOperationFailed(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Index)
	assert.Equal(t, "fill", re.Operation)
	assert.Contains(t, err.Error(), "x")

	// Operation 3 is never dispatched.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, peer.Received(), 2)
	assert.Equal(t, 0, r.Pending())
}

func TestRun_IgnoredErrorDoesNotCapture(t *testing.T) {
	r, _ := startPeer(t, testutil.Scripted(fail("nope"), ok(nil)))

	plan := ir.Plan{Operations: []ir.Operation{
		{Run: []string{"create", "page", "A"}, Capture: "p", IgnoreError: true},
		{Run: []string{"page", "set", "{{p}}"}},
	}}
	_, err := New(r, Options{OpTimeout: 5 * time.Second}).Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, IsUnresolvedCapture(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Index)
	assert.Equal(t, "op-2", re.Operation)
}

func TestRun_CompileFailureDispatchesNothing(t *testing.T) {
	r, peer := startPeer(t, testutil.NodeIDs())

	plan := ir.Plan{Operations: []ir.Operation{
		{Run: []string{"set", "opacity", "123:45", "notanumber"}},
	}}
	_, err := New(r, Options{OpTimeout: time.Second}).Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, compiler.IsInvalidArgument(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeCompileFailed, re.Code)
	assert.Equal(t, 1, re.Index)

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, peer.Received())
}

func TestRun_CaptureExtractionFailed(t *testing.T) {
	r, _ := startPeer(t, testutil.Scripted(ok(map[string]any{"name": "no id here"})))

	plan := ir.Plan{Operations: []ir.Operation{
		{Run: []string{"create", "page", "A"}, Capture: "p"},
	}}
	report, err := New(r, Options{OpTimeout: 5 * time.Second}).Run(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, IsCaptureExtractionFailed(err))
	assert.Equal(t, 0, report.Captures.Len())
}

func TestRun_CaptureOverwrite(t *testing.T) {
	r, _ := startPeer(t, testutil.NodeIDs())

	plan := ir.Plan{Operations: []ir.Operation{
		{Run: []string{"create", "page", "A"}, Capture: "p"},
		{Run: []string{"create", "page", "B"}, Capture: "p"},
	}}
	report, err := New(r, Options{OpTimeout: 5 * time.Second}).Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p": "1:2"}, report.Captures.Map())
}

// funcDispatcher adapts a function to Dispatcher.
type funcDispatcher func(kind ir.Kind, args ir.Args) (ir.Result, error)

func (f funcDispatcher) Dispatch(_ context.Context, kind ir.Kind, args ir.Args, _ time.Duration) (ir.Result, error) {
	return f(kind, args)
}

func TestRun_TimeoutIgnoredOnlyWhenAllowed(t *testing.T) {
	calls := 0
	d := funcDispatcher(func(kind ir.Kind, _ ir.Args) (ir.Result, error) {
		calls++
		if kind == ir.KindSetFill {
			return ir.Result{}, relay.NewTimeoutError("c-2", kind, time.Second)
		}
		return ir.Result{ID: "c", OK: true}, nil
	})

	report, err := New(d, Options{}).Run(context.Background(), ignorablePlan(true))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, report.Skipped)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = New(d, Options{}).Run(context.Background(), ignorablePlan(false))
	require.Error(t, err)
	assert.True(t, relay.IsTimeout(err))
	assert.Contains(t, err.Error(), relay.PluginManifest)
	assert.Equal(t, 2, calls)
}

func TestRun_ContextCancelIsFatalEvenWhenIgnorable(t *testing.T) {
	d := funcDispatcher(func(ir.Kind, ir.Args) (ir.Result, error) {
		return ir.Result{}, context.Canceled
	})
	_, err := New(d, Options{}).Run(context.Background(), ignorablePlan(true))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

type memRecorder struct {
	mu      sync.Mutex
	records []ir.CommandRecord
}

func (m *memRecorder) Record(_ context.Context, rec ir.CommandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func TestRun_RecordsEveryDispatch(t *testing.T) {
	r, _ := startPeer(t, testutil.Scripted(ok(map[string]any{"id": "0:1"}), fail("x"), ok(nil)))
	rec := &memRecorder{}

	_, err := New(r, Options{OpTimeout: 5 * time.Second, Recorder: rec}).Run(context.Background(), ignorablePlan(true))
	require.NoError(t, err)

	require.Len(t, rec.records, 3)
	assert.Equal(t, "cmd-1", rec.records[0].CommandID)
	assert.Equal(t, 1, rec.records[0].Index)
	assert.Equal(t, "page", rec.records[0].Operation)
	assert.Equal(t, ir.KindCreatePage, rec.records[0].Kind)
	assert.True(t, rec.records[0].OK)
	assert.Equal(t, map[string]any{"id": "0:1"}, rec.records[0].Result)

	assert.False(t, rec.records[1].OK)
	assert.Equal(t, "x", rec.records[1].Error)
	assert.False(t, rec.records[1].CompletedAt.Before(rec.records[1].DispatchedAt))
}

func TestRun_RecordsTimeoutCommandID(t *testing.T) {
	d := funcDispatcher(func(kind ir.Kind, _ ir.Args) (ir.Result, error) {
		return ir.Result{}, relay.NewTimeoutError("lost-1", kind, time.Second)
	})
	rec := &memRecorder{}
	plan := ir.Plan{Operations: []ir.Operation{{Run: []string{"create", "page", "A"}}}}

	_, err := New(d, Options{Recorder: rec}).Run(context.Background(), plan)
	require.Error(t, err)
	require.Len(t, rec.records, 1)
	assert.Equal(t, "lost-1", rec.records[0].CommandID)
	assert.False(t, rec.records[0].OK)
	assert.Contains(t, rec.records[0].Error, "RELAY_TIMEOUT")
}

// ctxRecorder keeps the context error seen by each Record call.
type ctxRecorder struct {
	memRecorder
	ctxErrs []error
}

func (c *ctxRecorder) Record(ctx context.Context, rec ir.CommandRecord) error {
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	return c.memRecorder.Record(ctx, rec)
}

func TestRun_RecordsInterruptedCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := funcDispatcher(func(ir.Kind, ir.Args) (ir.Result, error) {
		cancel()
		return ir.Result{}, context.Canceled
	})
	rec := &ctxRecorder{}
	plan := ir.Plan{Operations: []ir.Operation{{Run: []string{"create", "page", "A"}}}}

	_, err := New(d, Options{Recorder: rec}).Run(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, rec.records, 1)
	assert.False(t, rec.records[0].OK)
	assert.Contains(t, rec.records[0].Error, "context canceled")
	assert.Equal(t, []error{nil}, rec.ctxErrs)
}

func TestPreflight(t *testing.T) {
	status := map[string]any{"fileName": "Design", "fileKey": "abc123", "page": "Home"}

	t.Run("ok", func(t *testing.T) {
		r, peer := startPeer(t, testutil.Scripted(ok(status)))
		st, err := New(r, Options{OpTimeout: 5 * time.Second}).Preflight(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Design", st.FileName)
		assert.Equal(t, "abc123", st.FileKey)
		assert.Equal(t, status, st.Payload)

		require.Len(t, peer.Received(), 1)
		assert.Equal(t, ir.KindStatus, peer.Received()[0].Kind)
		assert.Equal(t, map[string]any{}, peer.Received()[0].Args)
	})

	t.Run("expected matches", func(t *testing.T) {
		r, _ := startPeer(t, testutil.Scripted(ok(status)))
		_, err := New(r, Options{OpTimeout: 5 * time.Second, ExpectedFileName: "Design", ExpectedFileKey: "abc123"}).Preflight(context.Background())
		require.NoError(t, err)
	})

	t.Run("name mismatch", func(t *testing.T) {
		r, _ := startPeer(t, testutil.Scripted(ok(status)))
		_, err := New(r, Options{OpTimeout: 5 * time.Second, ExpectedFileName: "Other"}).Preflight(context.Background())
		require.Error(t, err)
		assert.True(t, IsPreflightFailed(err))
		assert.Contains(t, err.Error(), `expected "Other", got "Design"`)
	})

	t.Run("key mismatch", func(t *testing.T) {
		r, _ := startPeer(t, testutil.Scripted(ok(status)))
		_, err := New(r, Options{OpTimeout: 5 * time.Second, ExpectedFileKey: "zzz"}).Preflight(context.Background())
		require.Error(t, err)
		assert.True(t, IsPreflightFailed(err))
	})

	t.Run("missing file name", func(t *testing.T) {
		r, _ := startPeer(t, testutil.Scripted(ok(nil)))
		st, err := New(r, Options{OpTimeout: 5 * time.Second}).Preflight(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "unknown", st.FileName)
		assert.Equal(t, "", st.FileKey)
	})

	t.Run("not ok", func(t *testing.T) {
		r, _ := startPeer(t, testutil.Scripted(fail("no document")))
		_, err := New(r, Options{OpTimeout: 5 * time.Second}).Preflight(context.Background())
		require.Error(t, err)
		assert.True(t, IsPreflightFailed(err))
		assert.Contains(t, err.Error(), "no document")
	})
}

func TestDryRun(t *testing.T) {
	plan := ir.Plan{Operations: []ir.Operation{
		{Name: "page", Run: []string{"create", "page", "Home"}, Capture: "page"},
		{Run: []string{"page", "set", "{{page}}"}},
		{Run: []string{"create", "frame", "--name", "F", "--parent", "{{page}}"}, Capture: "f"},
	}}

	steps, captures, err := DryRun(plan)
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, "page", steps[0].Operation)
	assert.Equal(t, ir.KindSetCurrentPage, steps[1].Kind)
	assert.Equal(t, compiler.SetCurrentPageArgs{IDOrName: "dry_page"}, steps[1].Args)
	assert.Equal(t, "op-3", steps[2].Operation)
	assert.Equal(t, "dry_page", steps[2].Args.(compiler.CreateFrameArgs).ParentID)

	assert.Equal(t, []string{"page", "f"}, captures.Names())
	v, _ := captures.Get("f")
	assert.Equal(t, "dry_f", v)
}

func TestDryRun_Errors(t *testing.T) {
	_, _, err := DryRun(ir.Plan{Operations: []ir.Operation{{Run: []string{"page", "set", "{{missing}}"}}}})
	assert.True(t, IsUnresolvedCapture(err))

	_, _, err = DryRun(ir.Plan{Operations: []ir.Operation{{Run: []string{"delete", "node", "1:1"}}}})
	assert.True(t, compiler.IsUnsupportedOperation(err))
}
