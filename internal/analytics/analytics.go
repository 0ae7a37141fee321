package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// timestamp formats to try when parsing timestamps from the database
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// RunDuration holds duration stats for one process.
type RunDuration struct {
	Process string  `json:"process"`
	Count   int     `json:"count"`
	Avg     float64 `json:"avg_minutes"`
	P50     float64 `json:"p50_minutes"`
	P95     float64 `json:"p95_minutes"`
}

// QueryRunDurations returns average and percentile wall-clock durations per
// process, over finished runs only.
func QueryRunDurations(database DB, since string) ([]RunDuration, error) {
	query := `
		SELECT process, started_at, finished_at
		FROM runs
		WHERE status != 'in_progress' AND finished_at IS NOT NULL`

	args := []interface{}{}
	if since != "" {
		query += ` AND started_at >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run durations: %w", err)
	}
	defer rows.Close()

	durations := make(map[string][]float64)
	for rows.Next() {
		var process, startTS, endTS string
		if err := rows.Scan(&process, &startTS, &endTS); err != nil {
			return nil, fmt.Errorf("scan run duration: %w", err)
		}
		start, err := parseTimestamp(startTS)
		if err != nil {
			continue
		}
		end, err := parseTimestamp(endTS)
		if err != nil {
			continue
		}
		minutes := end.Sub(start).Minutes()
		if minutes >= 0 {
			durations[process] = append(durations[process], minutes)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []RunDuration
	for process, ds := range durations {
		sort.Float64s(ds)
		results = append(results, RunDuration{
			Process: process,
			Count:   len(ds),
			Avg:     avg(ds),
			P50:     percentile(ds, 50),
			P95:     percentile(ds, 95),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Process < results[j].Process
	})
	return results, nil
}

// ProcessOutcome holds success/failure stats for one process.
type ProcessOutcome struct {
	Process    string  `json:"process"`
	Total      int     `json:"total"`
	SuccessPct float64 `json:"success_pct"`
	FailedPct  float64 `json:"failed_pct"`
}

// QueryProcessOutcomes returns per-process success and failure rates over
// finished runs.
func QueryProcessOutcomes(database DB, since string) ([]ProcessOutcome, error) {
	query := `
		SELECT process,
			COUNT(*) as total,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as successes
		FROM runs
		WHERE status != 'in_progress'`

	args := []interface{}{}
	if since != "" {
		query += ` AND started_at >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY process ORDER BY process`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query process outcomes: %w", err)
	}
	defer rows.Close()

	var results []ProcessOutcome
	for rows.Next() {
		var process string
		var total, successes int
		if err := rows.Scan(&process, &total, &successes); err != nil {
			return nil, fmt.Errorf("scan process outcome: %w", err)
		}
		results = append(results, ProcessOutcome{
			Process:    process,
			Total:      total,
			SuccessPct: pct(successes, total),
			FailedPct:  pct(total-successes, total),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GateActivity holds trigger and wait stats for one gate.
type GateActivity struct {
	Gate           string  `json:"gate"`
	Triggered      int     `json:"triggered"`
	AvgWaitMinutes float64 `json:"avg_wait_minutes"`
}

// QueryGateActivity returns how often each gate triggered and the average
// time a run spent suspended on it.
func QueryGateActivity(database DB, since string) ([]GateActivity, error) {
	query := `
		SELECT gate, triggered_at, replied_at
		FROM gate_replies`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE triggered_at >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gate activity: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	waits := make(map[string][]float64)
	for rows.Next() {
		var gate, triggeredTS string
		var repliedTS sql.NullString
		if err := rows.Scan(&gate, &triggeredTS, &repliedTS); err != nil {
			return nil, fmt.Errorf("scan gate activity: %w", err)
		}
		counts[gate]++
		if !repliedTS.Valid {
			continue
		}
		triggered, err := parseTimestamp(triggeredTS)
		if err != nil {
			continue
		}
		replied, err := parseTimestamp(repliedTS.String)
		if err != nil {
			continue
		}
		minutes := replied.Sub(triggered).Minutes()
		if minutes >= 0 {
			waits[gate] = append(waits[gate], minutes)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []GateActivity
	for gate, count := range counts {
		results = append(results, GateActivity{
			Gate:           gate,
			Triggered:      count,
			AvgWaitMinutes: avg(waits[gate]),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Gate < results[j].Gate
	})
	return results, nil
}

// WorkUnitFailure holds failure stats for one work unit.
type WorkUnitFailure struct {
	WorkUnit      string  `json:"work_unit"`
	Total         int     `json:"total"`
	FailRate      float64 `json:"fail_rate_pct"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// QueryWorkUnitFailures returns which work units fail most and their average
// execution time, worst failure rate first.
func QueryWorkUnitFailures(database DB, since string) ([]WorkUnitFailure, error) {
	query := `
		SELECT work_unit,
			COUNT(*) as total,
			SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END) as failed,
			AVG(duration_ms) as avg_ms
		FROM executions`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY work_unit ORDER BY failed DESC, work_unit`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query work unit failures: %w", err)
	}
	defer rows.Close()

	var results []WorkUnitFailure
	for rows.Next() {
		var workUnit string
		var total, failed int
		var avgMs sql.NullFloat64
		if err := rows.Scan(&workUnit, &total, &failed, &avgMs); err != nil {
			return nil, fmt.Errorf("scan work unit failure: %w", err)
		}
		results = append(results, WorkUnitFailure{
			WorkUnit:      workUnit,
			Total:         total,
			FailRate:      pct(failed, total),
			AvgDurationMs: math.Round(avgMs.Float64*10) / 10,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
