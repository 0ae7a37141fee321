package analytics

import (
	"database/sql"
	"testing"

	"github.com/calebmoore/qaforge/internal/db"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func exec(t *testing.T, conn *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := conn.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// --- QueryRunDurations ---

func TestQueryRunDurations(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('r1', 'e2e-suite', 'completed', 1, '2024-06-01 10:00:00', '2024-06-01 10:10:00')`)
	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('r2', 'e2e-suite', 'completed', 1, '2024-06-02 10:00:00', '2024-06-02 10:20:00')`)
	// In-progress runs are excluded.
	exec(t, c, `INSERT INTO runs (run_id, process, status, started_at)
		VALUES ('r3', 'e2e-suite', 'in_progress', '2024-06-03 10:00:00')`)

	results, err := QueryRunDurations(d, "")
	if err != nil {
		t.Fatalf("QueryRunDurations: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Process != "e2e-suite" {
		t.Errorf("process = %q, want e2e-suite", r.Process)
	}
	if r.Count != 2 {
		t.Errorf("count = %d, want 2", r.Count)
	}
	if r.Avg != 15.0 {
		t.Errorf("avg = %v, want 15.0", r.Avg)
	}
	if r.P50 != 15.0 {
		t.Errorf("p50 = %v, want 15.0", r.P50)
	}
}

func TestQueryRunDurationsSince(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('old', 'mutation', 'failed', 0, '2023-01-01 10:00:00', '2023-01-01 10:30:00')`)
	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('new', 'mutation', 'completed', 1, '2024-06-01 10:00:00', '2024-06-01 10:05:00')`)

	results, err := QueryRunDurations(d, "2024-01-01")
	if err != nil {
		t.Fatalf("QueryRunDurations: %v", err)
	}
	if len(results) != 1 || results[0].Count != 1 {
		t.Fatalf("expected only the 2024 run, got %+v", results)
	}
	if results[0].Avg != 5.0 {
		t.Errorf("avg = %v, want 5.0", results[0].Avg)
	}
}

// --- QueryProcessOutcomes ---

func TestQueryProcessOutcomes(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('a', 'flakiness', 'completed', 1, '2024-06-01 10:00:00', '2024-06-01 10:10:00')`)
	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('b', 'flakiness', 'completed', 1, '2024-06-01 11:00:00', '2024-06-01 11:10:00')`)
	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('c', 'flakiness', 'failed', 0, '2024-06-01 12:00:00', '2024-06-01 12:01:00')`)
	exec(t, c, `INSERT INTO runs (run_id, process, status, success, started_at, finished_at)
		VALUES ('d', 'perf-test', 'completed', 1, '2024-06-01 13:00:00', '2024-06-01 13:30:00')`)

	results, err := QueryProcessOutcomes(d, "")
	if err != nil {
		t.Fatalf("QueryProcessOutcomes: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(results))
	}
	flaky := results[0]
	if flaky.Process != "flakiness" {
		t.Fatalf("results not sorted by process: %+v", results)
	}
	if flaky.Total != 3 {
		t.Errorf("total = %d, want 3", flaky.Total)
	}
	if flaky.SuccessPct != 66.7 {
		t.Errorf("success pct = %v, want 66.7", flaky.SuccessPct)
	}
	if flaky.FailedPct != 33.3 {
		t.Errorf("failed pct = %v, want 33.3", flaky.FailedPct)
	}
}

// --- QueryGateActivity ---

func TestQueryGateActivity(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	exec(t, c, `INSERT INTO gate_replies (run_id, gate, phase, reply, triggered_at, replied_at)
		VALUES ('r1', 'Pass rate below target', 'stabilize', 'ok', '2024-06-01 10:00:00', '2024-06-01 10:04:00')`)
	exec(t, c, `INSERT INTO gate_replies (run_id, gate, phase, reply, triggered_at, replied_at)
		VALUES ('r2', 'Pass rate below target', 'stabilize', 'fine', '2024-06-02 10:00:00', '2024-06-02 10:06:00')`)
	exec(t, c, `INSERT INTO gate_replies (run_id, gate, phase, reply, triggered_at, replied_at)
		VALUES ('r3', 'Few journeys identified', 'discover', '', '2024-06-03 10:00:00', NULL)`)

	results, err := QueryGateActivity(d, "")
	if err != nil {
		t.Fatalf("QueryGateActivity: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 gates, got %d", len(results))
	}
	if results[0].Gate != "Few journeys identified" {
		t.Fatalf("results not sorted by gate: %+v", results)
	}
	if results[0].Triggered != 1 {
		t.Errorf("triggered = %d, want 1", results[0].Triggered)
	}
	if results[0].AvgWaitMinutes != 0 {
		t.Errorf("unanswered gate avg wait = %v, want 0", results[0].AvgWaitMinutes)
	}
	passRate := results[1]
	if passRate.Triggered != 2 {
		t.Errorf("triggered = %d, want 2", passRate.Triggered)
	}
	if passRate.AvgWaitMinutes != 5.0 {
		t.Errorf("avg wait = %v, want 5.0", passRate.AvgWaitMinutes)
	}
}

// --- QueryWorkUnitFailures ---

func TestQueryWorkUnitFailures(t *testing.T) {
	d := testDB(t)
	c := d.Conn()

	exec(t, c, `INSERT INTO executions (run_id, exec_id, phase, work_unit, ok, duration_ms)
		VALUES ('r1', 'e1', 'discover', 'journey_discovery', 1, 2000)`)
	exec(t, c, `INSERT INTO executions (run_id, exec_id, phase, work_unit, ok, duration_ms)
		VALUES ('r1', 'e2', 'author', 'scenario_authoring', 0, 4000)`)
	exec(t, c, `INSERT INTO executions (run_id, exec_id, phase, work_unit, ok, duration_ms)
		VALUES ('r2', 'e3', 'author', 'scenario_authoring', 1, 6000)`)

	results, err := QueryWorkUnitFailures(d, "")
	if err != nil {
		t.Fatalf("QueryWorkUnitFailures: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 work units, got %d", len(results))
	}
	// Highest failure count first.
	if results[0].WorkUnit != "scenario_authoring" {
		t.Fatalf("ordering wrong: %+v", results)
	}
	if results[0].FailRate != 50.0 {
		t.Errorf("fail rate = %v, want 50.0", results[0].FailRate)
	}
	if results[0].AvgDurationMs != 5000.0 {
		t.Errorf("avg duration = %v, want 5000.0", results[0].AvgDurationMs)
	}
	if results[1].FailRate != 0.0 {
		t.Errorf("fail rate = %v, want 0.0", results[1].FailRate)
	}
}

func TestQueriesOnEmptyDB(t *testing.T) {
	d := testDB(t)

	if results, err := QueryRunDurations(d, ""); err != nil || len(results) != 0 {
		t.Errorf("QueryRunDurations on empty db = %v, %v", results, err)
	}
	if results, err := QueryProcessOutcomes(d, ""); err != nil || len(results) != 0 {
		t.Errorf("QueryProcessOutcomes on empty db = %v, %v", results, err)
	}
	if results, err := QueryGateActivity(d, ""); err != nil || len(results) != 0 {
		t.Errorf("QueryGateActivity on empty db = %v, %v", results, err)
	}
	if results, err := QueryWorkUnitFailures(d, ""); err != nil || len(results) != 0 {
		t.Errorf("QueryWorkUnitFailures on empty db = %v, %v", results, err)
	}
}
