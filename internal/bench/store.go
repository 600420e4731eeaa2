package bench

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS bench_results (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_at  TEXT    NOT NULL,
	map     TEXT    NOT NULL,
	label   TEXT    NOT NULL DEFAULT '',
	agents  INTEGER NOT NULL,
	runs    INTEGER NOT NULL,
	avg_ms  REAL    NOT NULL,
	min_ms  REAL    NOT NULL,
	max_ms  REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bench_results_map_agents ON bench_results(map, agents);
`

// runAtLayout is fixed-width so run_at sorts lexically.
const runAtLayout = "2006-01-02T15:04:05.000000000Z"

// StoredResult is a Result tagged with the sweep it belongs to.
type StoredResult struct {
	RunAt time.Time
	Result
}

// SQLiteStore appends benchmark results to a SQLite database so sweeps can
// be compared over time.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the results database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, resultsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize results schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save appends results under a single sweep timestamp in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, runAt time.Time, results []Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bench_results (run_at, map, label, agents, runs, avg_ms, min_ms, max_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	stamp := runAt.UTC().Format(runAtLayout)
	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, stamp, r.MapName, r.Label, r.Agents, r.Runs, r.AvgMs, r.MinMs, r.MaxMs); err != nil {
			return fmt.Errorf("failed to insert result %s/%d: %w", r.MapName, r.Agents, err)
		}
	}
	return tx.Commit()
}

// List returns every stored result, oldest sweep first, then by map name
// and agent count.
func (s *SQLiteStore) List(ctx context.Context) ([]StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_at, map, label, agents, runs, avg_ms, min_ms, max_ms
		FROM bench_results
		ORDER BY run_at, map, agents, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			sr    StoredResult
			stamp string
		)
		if err := rows.Scan(&stamp, &sr.MapName, &sr.Label, &sr.Agents, &sr.Runs, &sr.AvgMs, &sr.MinMs, &sr.MaxMs); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		sr.RunAt, err = time.Parse(runAtLayout, stamp)
		if err != nil {
			return nil, fmt.Errorf("invalid run_at %q: %w", stamp, err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
