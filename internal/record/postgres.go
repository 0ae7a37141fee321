package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores records in a single run_records table. Intended for shared
// deployments where several operators inspect the same runs; the filesystem
// store remains the default for single-machine use.
type Postgres struct {
	db *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS run_records (
    run_id     TEXT NOT NULL,
    phase      TEXT NOT NULL,
    exec_id    TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('input', 'output', 'report')),
    name       TEXT NOT NULL DEFAULT '',
    data       JSONB,
    raw        BYTEA,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (run_id, phase, exec_id, kind, name)
);
CREATE INDEX IF NOT EXISTS idx_run_records_run ON run_records(run_id, created_at);
`

// OpenPostgres connects to the given DSN using the pgx stdlib driver and
// ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure run_records schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) PutInput(ctx context.Context, runID, phase, execID string, data []byte) error {
	return s.put(ctx, runID, phase, execID, "input", "", data)
}

func (s *Postgres) PutOutput(ctx context.Context, runID, phase, execID string, data []byte) error {
	return s.put(ctx, runID, phase, execID, "output", "", data)
}

// PutReport stores a report row and returns its table-qualified key.
// Reports live in the database, not on disk, so the returned path is an
// opaque storage key rather than a dereferenceable filesystem path.
func (s *Postgres) PutReport(ctx context.Context, runID, name string, data []byte) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_records (run_id, phase, exec_id, kind, name, raw)
		 VALUES ($1, '', '', 'report', $2, $3)
		 ON CONFLICT (run_id, phase, exec_id, kind, name) DO UPDATE SET raw = EXCLUDED.raw`,
		runID, name, data,
	)
	if err != nil {
		return "", fmt.Errorf("put report %q: %w", name, err)
	}
	return fmt.Sprintf("run_records/%s/reports/%s", runID, name), nil
}

// ReadOutput returns the recorded output snapshot for one execution.
func (s *Postgres) ReadOutput(ctx context.Context, runID, phase, execID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM run_records WHERE run_id = $1 AND phase = $2 AND exec_id = $3 AND kind = 'output'`,
		runID, phase, execID,
	).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return data, nil
}

func (s *Postgres) put(ctx context.Context, runID, phase, execID, kind, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_records (run_id, phase, exec_id, kind, name, data)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id, phase, exec_id, kind, name) DO UPDATE SET data = EXCLUDED.data`,
		runID, phase, execID, kind, name, data,
	)
	if err != nil {
		return fmt.Errorf("put %s record: %w", kind, err)
	}
	return nil
}
