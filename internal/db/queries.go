package db

import (
	"database/sql"
	"fmt"
)

// Run represents a row in the runs table.
type Run struct {
	RunID      string
	Process    string
	Status     string
	Success    *bool
	StartedAt  string
	FinishedAt string
}

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	RunID     string
	Event     string
	Phase     string
	Detail    string
	Timestamp string
}

// Execution represents a row in the executions table.
type Execution struct {
	ID         int
	RunID      string
	ExecID     string
	Phase      string
	WorkUnit   string
	Ok         bool
	DurationMs int
	Failure    string
	Timestamp  string
}

// GateReply represents a row in the gate_replies table.
type GateReply struct {
	ID          int
	RunID       string
	Gate        string
	Phase       string
	Reply       string
	TriggeredAt string
	RepliedAt   string
}

// CreateRun inserts a new in-progress run.
func (d *DB) CreateRun(runID, process string) error {
	_, err := d.conn.Exec(
		`INSERT INTO runs (run_id, process, status) VALUES (?, ?, 'in_progress')`,
		runID, process,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun marks a run completed or failed.
func (d *DB) FinishRun(runID string, success bool) error {
	status := "completed"
	if !success {
		status = "failed"
	}
	_, err := d.conn.Exec(
		`UPDATE runs SET status = ?, success = ?, finished_at = datetime('now') WHERE run_id = ?`,
		status, success, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun returns a single run, or nil if not found.
func (d *DB) GetRun(runID string) (*Run, error) {
	row := d.conn.QueryRow(
		`SELECT run_id, process, status, success, started_at, COALESCE(finished_at, '') FROM runs WHERE run_id = ?`,
		runID,
	)
	var r Run
	var success sql.NullBool
	err := row.Scan(&r.RunID, &r.Process, &r.Status, &success, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if success.Valid {
		v := success.Bool
		r.Success = &v
	}
	return &r, nil
}

// ListRuns returns runs, newest first, optionally filtered by status.
func (d *DB) ListRuns(status string) ([]Run, error) {
	query := `SELECT run_id, process, status, success, started_at, COALESCE(finished_at, '') FROM runs`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC, run_id DESC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var success sql.NullBool
		if err := rows.Scan(&r.RunID, &r.Process, &r.Status, &success, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if success.Valid {
			v := success.Bool
			r.Success = &v
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LogRunEvent inserts a run event.
func (d *DB) LogRunEvent(runID, event, phase, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (run_id, event, phase, detail) VALUES (?, ?, ?, ?)`,
		runID, event, phase, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// GetRunEvents returns all events for a run in insertion order.
func (d *DB) GetRunEvents(runID string) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, event, COALESCE(phase, ''), COALESCE(detail, ''), timestamp
		 FROM run_events WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run events: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &e.Phase, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LogExecution records one work unit execution outcome.
func (d *DB) LogExecution(runID, execID, phase, workUnit string, ok bool, durationMs int, failure string) error {
	_, err := d.conn.Exec(
		`INSERT INTO executions (run_id, exec_id, phase, work_unit, ok, duration_ms, failure)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, execID, phase, workUnit, ok, durationMs, failure,
	)
	if err != nil {
		return fmt.Errorf("log execution: %w", err)
	}
	return nil
}

// GetExecutions returns all executions for a run in insertion order.
func (d *DB) GetExecutions(runID string) ([]Execution, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, exec_id, phase, work_unit, ok, COALESCE(duration_ms, 0), COALESCE(failure, ''), timestamp
		 FROM executions WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.RunID, &e.ExecID, &e.Phase, &e.WorkUnit, &e.Ok, &e.DurationMs, &e.Failure, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// LogGateReply records a triggered gate and the audited reply.
func (d *DB) LogGateReply(runID, gate, phase, reply, triggeredAt, repliedAt string) error {
	_, err := d.conn.Exec(
		`INSERT INTO gate_replies (run_id, gate, phase, reply, triggered_at, replied_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, gate, phase, reply, triggeredAt, repliedAt,
	)
	if err != nil {
		return fmt.Errorf("log gate reply: %w", err)
	}
	return nil
}

// GetGateReplies returns all gate replies for a run in insertion order.
func (d *DB) GetGateReplies(runID string) ([]GateReply, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, gate, COALESCE(phase, ''), COALESCE(reply, ''), triggered_at, COALESCE(replied_at, '')
		 FROM gate_replies WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get gate replies: %w", err)
	}
	defer rows.Close()

	var replies []GateReply
	for rows.Next() {
		var g GateReply
		if err := rows.Scan(&g.ID, &g.RunID, &g.Gate, &g.Phase, &g.Reply, &g.TriggeredAt, &g.RepliedAt); err != nil {
			return nil, fmt.Errorf("scan gate reply: %w", err)
		}
		replies = append(replies, g)
	}
	return replies, rows.Err()
}
