package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the runs table plus its command count.
type RunSummary struct {
	ID         int64      `json:"id"`
	TaskID     string     `json:"task_id"`
	Project    string     `json:"project"`
	PlanPath   string     `json:"plan_path,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Commands   int        `json:"commands"`
}

// CommandEntry is one journaled command.
type CommandEntry struct {
	Seq          int             `json:"seq"`
	Index        int             `json:"op_index"`
	Operation    string          `json:"op_name"`
	CommandID    string          `json:"command_id"`
	Kind         string          `json:"kind"`
	Args         json.RawMessage `json:"args"`
	OK           bool            `json:"ok"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	DispatchedAt time.Time       `json:"dispatched_at"`
	CompletedAt  time.Time       `json:"completed_at"`
}

const summaryColumns = `
	r.id, r.task_id, r.project, r.plan_path, r.started_at, r.finished_at, r.status, r.error,
	(SELECT COUNT(*) FROM commands c WHERE c.run_id = r.id)
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(s scanner) (RunSummary, error) {
	var (
		rs       RunSummary
		started  int64
		finished sql.NullInt64
	)
	if err := s.Scan(&rs.ID, &rs.TaskID, &rs.Project, &rs.PlanPath, &started, &finished, &rs.Status, &rs.Error, &rs.Commands); err != nil {
		return RunSummary{}, err
	}
	rs.StartedAt = fromMillis(started)
	if finished.Valid {
		t := fromMillis(finished.Int64)
		rs.FinishedAt = &t
	}
	return rs, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `SELECT `+summaryColumns+`
		FROM runs r
		ORDER BY r.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		rs, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// ReadRun returns one run and its commands in sequence order.
func (j *Journal) ReadRun(ctx context.Context, id int64) (RunSummary, []CommandEntry, error) {
	rs, err := scanSummary(j.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM runs r WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunSummary{}, nil, fmt.Errorf("read run: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, op_index, op_name, command_id, kind, args, ok, result, error, dispatched_at, completed_at
		FROM commands
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return RunSummary{}, nil, fmt.Errorf("read commands: %w", err)
	}
	defer rows.Close()

	var cmds []CommandEntry
	for rows.Next() {
		var (
			c                   CommandEntry
			args                string
			result              sql.NullString
			dispatched, settled int64
		)
		if err := rows.Scan(&c.Seq, &c.Index, &c.Operation, &c.CommandID, &c.Kind, &args, &c.OK, &result, &c.Error, &dispatched, &settled); err != nil {
			return RunSummary{}, nil, fmt.Errorf("read commands: %w", err)
		}
		c.Args = json.RawMessage(args)
		if result.Valid {
			c.Result = json.RawMessage(result.String)
		}
		c.DispatchedAt = fromMillis(dispatched)
		c.CompletedAt = fromMillis(settled)
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, nil, fmt.Errorf("read commands: %w", err)
	}
	return rs, cmds, nil
}

// Query executes a raw read query against the journal.
func (j *Journal) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return j.db.QueryContext(ctx, query, args...)
}
