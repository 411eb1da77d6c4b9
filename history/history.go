// ABOUTME: SQLite-backed history of lint runs keyed by ULID, storing counts and the full report JSON.
// ABOUTME: Provides record, get, list, and prune operations for the CLI and HTTP server.
package history

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/2389-research/flowlint/lint"
)

// ErrNotFound is returned by Get when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// timeLayout has fixed-width fractions so stored UTC timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded lint run. Report is nil in List results.
type Run struct {
	ID         ulid.ULID    `json:"runId"`
	Source     string       `json:"source"`
	StartedAt  time.Time    `json:"startedAt"`
	WarnCount  int          `json:"warnCount"`
	ErrorCount int          `json:"errorCount"`
	Report     *lint.Report `json:"report,omitempty"`
}

// Store is the run history database.
type Store struct {
	db *sql.DB
}

// NewRunID returns a ULID for a run started at t, using crypto/rand entropy.
func NewRunID(t time.Time) ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader)
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			warn_count INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			report_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS runs_source ON runs(source);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a completed run and returns it with a new id.
func (s *Store) Record(source string, report *lint.Report, startedAt time.Time) (Run, error) {
	if report == nil {
		return Run{}, errors.New("record run: nil report")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return Run{}, fmt.Errorf("encode report: %w", err)
	}

	run := Run{
		ID:         NewRunID(startedAt),
		Source:     source,
		StartedAt:  startedAt.UTC(),
		WarnCount:  report.Count(lint.SeverityWarn),
		ErrorCount: report.Count(lint.SeverityError),
		Report:     report,
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, source, started_at, warn_count, error_count, report_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.Source,
		run.StartedAt.Format(timeLayout),
		run.WarnCount,
		run.ErrorCount,
		string(data),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Get returns the run with the given id, including its report.
func (s *Store) Get(id string) (Run, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return Run{}, fmt.Errorf("%w: invalid run id %q", ErrNotFound, id)
	}

	var (
		run        Run
		startedAt  string
		reportJSON string
	)
	err = s.db.QueryRow(
		`SELECT source, started_at, warn_count, error_count, report_json
		 FROM runs WHERE run_id = ?`, parsed.String(),
	).Scan(&run.Source, &startedAt, &run.WarnCount, &run.ErrorCount, &reportJSON)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}

	run.ID = parsed
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	var report lint.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return Run{}, fmt.Errorf("decode report: %w", err)
	}
	if report.Result == nil {
		report.Result = []lint.Diagnostic{}
	}
	run.Report = &report
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less returns all runs.
func (s *Store) List(limit int) ([]Run, error) {
	query := `SELECT run_id, source, started_at, warn_count, error_count
		FROM runs ORDER BY started_at DESC, run_id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		var (
			run       Run
			id        string
			startedAt string
		)
		if err := rows.Scan(&id, &run.Source, &startedAt, &run.WarnCount, &run.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if run.ID, err = ulid.ParseStrict(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(
		`DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
