// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records pipeline runs and per-identifier stage outcomes
// in a local SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// ErrNoRuns is returned by LastRun when the ledger is empty.
var ErrNoRuns = errors.New("no runs recorded")

// Ledger manages the run ledger database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			identifiers INTEGER NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			export_path TEXT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			identifier TEXT NOT NULL,
			source TEXT,
			fetch TEXT,
			parse TEXT,
			clean TEXT,
			info TEXT,
			data TEXT,
			records INTEGER,
			errors TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun inserts a running record for id.
func (l *Ledger) StartRun(ctx context.Context, id string, identifiers int, startedAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, identifiers, started_at) VALUES (?, ?, ?, ?)`,
		id, string(types.RunRunning), identifiers, formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", id, err)
	}
	return nil
}

// RecordOutcome appends one identifier's outcome to a run.
func (l *Ledger) RecordOutcome(ctx context.Context, runID string, o types.Outcome) error {
	errorsJSON, _ := json.Marshal(o.Errors)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, identifier, source, fetch, parse, clean, info, data, records, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Identifier, o.Source,
		string(o.Fetch), string(o.Parse), string(o.Clean), string(o.Info), string(o.Data),
		o.Records, string(errorsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting outcome for %s: %w", o.Identifier, err)
	}
	return nil
}

// FinishRun marks a run finished, or failed when runErr is non-empty.
func (l *Ledger) FinishRun(ctx context.Context, id string, finishedAt time.Time, rows int, exportPath, runErr string) error {
	status := types.RunFinished
	if runErr != "" {
		status = types.RunFailed
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, row_count = ?, finished_at = ?, export_path = ?, error = ? WHERE id = ?`,
		string(status), rows, formatTime(finishedAt), exportPath, runErr, id,
	)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Run returns the record for id.
func (l *Ledger) Run(ctx context.Context, id string) (types.RunRecord, error) {
	row := l.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunRecord{}, fmt.Errorf("run %s: %w", id, ErrNoRuns)
	}
	return rec, err
}

// LastRun returns the most recently started run.
func (l *Ledger) LastRun(ctx context.Context) (types.RunRecord, error) {
	row := l.db.QueryRowContext(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RunRecord{}, ErrNoRuns
	}
	return rec, err
}

// Runs lists up to limit runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Outcomes returns a run's outcomes in the order they were recorded.
func (l *Ledger) Outcomes(ctx context.Context, runID string) ([]types.Outcome, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT identifier, source, fetch, parse, clean, info, data, records, errors
		 FROM outcomes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []types.Outcome
	for rows.Next() {
		var (
			o                                  types.Outcome
			source, errs                       sql.NullString
			fetch, parse, clean, info, dataRsn string
		)
		if err := rows.Scan(&o.Identifier, &source, &fetch, &parse, &clean, &info, &dataRsn, &o.Records, &errs); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Source = source.String
		o.Fetch = types.Degradation(fetch)
		o.Parse = types.Degradation(parse)
		o.Clean = types.Degradation(clean)
		o.Info = types.Degradation(info)
		o.Data = types.Degradation(dataRsn)
		if errs.Valid && errs.String != "" && errs.String != "null" {
			_ = json.Unmarshal([]byte(errs.String), &o.Errors)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const selectRun = `SELECT id, status, identifiers, row_count, started_at, finished_at, export_path, error FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (types.RunRecord, error) {
	var (
		rec                         types.RunRecord
		status, started             string
		finished, exportPath, rnErr sql.NullString
	)
	if err := s.Scan(&rec.ID, &status, &rec.Identifiers, &rec.Rows, &started, &finished, &exportPath, &rnErr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning run: %w", err)
	}
	rec.Status = types.RunStatus(status)
	rec.StartedAt = parseTime(started)
	if finished.Valid && finished.String != "" {
		t := parseTime(finished.String)
		rec.FinishedAt = &t
	}
	rec.ExportPath = exportPath.String
	rec.Error = rnErr.String
	return rec, nil
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
