package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// historyDDL defines the run-history schema. Idempotent; executed on
// every open.
const historyDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    plan_id     TEXT NOT NULL,
    instruction TEXT NOT NULL,
    total_jobs  INTEGER NOT NULL,
    successful  INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    timed_out   INTEGER NOT NULL,
    cancelled   INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    report_path TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// RunRecord is one row of run history.
type RunRecord struct {
	ID          int64         `json:"id"`
	PlanID      string        `json:"plan_id"`
	Instruction string        `json:"instruction"`
	TotalJobs   int           `json:"total_jobs"`
	Successful  int           `json:"successful"`
	Failed      int           `json:"failed"`
	TimedOut    int           `json:"timed_out"`
	Cancelled   int           `json:"cancelled"`
	Duration    time.Duration `json:"duration"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	ReportPath  string        `json:"report_path"`
}

// History records finished runs in a local SQLite database so past
// runs survive report cleanup. History failures are advisory; callers
// log them and keep the run's reports.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the run-history database at
// path with WAL journaling and a busy timeout, and applies the schema.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db %s: %w", path, err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, historyDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record inserts one finished run.
func (h *History) Record(ctx context.Context, summary *Summary, instruction, reportPath string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs
		   (plan_id, instruction, total_jobs, successful, failed, timed_out, cancelled,
		    duration_ms, started_at, finished_at, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.PlanID,
		instruction,
		summary.TotalJobs,
		summary.Successful,
		summary.Failed,
		summary.TimedOut,
		summary.Cancelled,
		summary.Duration.Milliseconds(),
		summary.StartTime.UTC().Format(time.RFC3339Nano),
		summary.EndTime.UTC().Format(time.RFC3339Nano),
		reportPath,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", summary.PlanID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, plan_id, instruction, total_jobs, successful, failed, timed_out, cancelled,
		        duration_ms, started_at, finished_at, report_path
		   FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationMS int64
		var startedAt, finishedAt string
		if err := rows.Scan(&rec.ID, &rec.PlanID, &rec.Instruction, &rec.TotalJobs,
			&rec.Successful, &rec.Failed, &rec.TimedOut, &rec.Cancelled,
			&durationMS, &startedAt, &finishedAt, &rec.ReportPath); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
