package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/figbridge/internal/ir"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunInfo identifies a run when it starts.
type RunInfo struct {
	TaskID   string
	Project  string
	PlanPath string
}

// Run is the handle for one journaled run. It satisfies the executor's
// Recorder interface.
type Run struct {
	ID int64
	j  *Journal
}

// BeginRun inserts a run in the running state.
func (j *Journal) BeginRun(ctx context.Context, info RunInfo) (*Run, error) {
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (task_id, project, plan_path, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`, info.TaskID, info.Project, info.PlanPath, toMillis(j.now()), StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{ID: id, j: j}, nil
}

// RecordCommand appends one command to a run. Sequence numbers start at 1
// and follow insertion order.
func (j *Journal) RecordCommand(ctx context.Context, runID int64, rec ir.CommandRecord) error {
	argsJSON, err := ir.MarshalCanonical(rec.Args)
	if err != nil {
		return fmt.Errorf("record command: marshal args: %w", err)
	}

	var resultJSON sql.NullString
	if rec.Result != nil {
		data, err := ir.MarshalCanonical(rec.Result)
		if err != nil {
			return fmt.Errorf("record command: marshal result: %w", err)
		}
		resultJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO commands
		(run_id, seq, op_index, op_name, command_id, kind, args, ok, result, error, dispatched_at, completed_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM commands WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, runID,
		rec.Index,
		rec.Operation,
		rec.CommandID,
		string(rec.Kind),
		string(argsJSON),
		rec.OK,
		resultJSON,
		rec.Error,
		toMillis(rec.DispatchedAt),
		toMillis(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// FinishRun marks a run succeeded, or failed with runErr's text.
func (j *Journal) FinishRun(ctx context.Context, runID int64, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, error = ?
		WHERE id = ?
	`, toMillis(j.now()), status, msg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Record appends rec to the run.
func (r *Run) Record(ctx context.Context, rec ir.CommandRecord) error {
	return r.j.RecordCommand(ctx, r.ID, rec)
}

// Finish closes the run with runErr's outcome.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	return r.j.FinishRun(ctx, r.ID, runErr)
}
