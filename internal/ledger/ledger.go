package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"autounpack/internal/archive"
)

// Run states.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = "2006-01-02T15:04:05.000000000Z07:00"
)

// Ledger is the SQLite backed run history.
type Ledger struct {
	db   *sql.DB
	path string
}

// Run is one pipeline execution.
type Run struct {
	ID         string
	ConfigPath string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
	Succeeded  int
	Failed     int
}

// Outcome is one recorded archive outcome.
type Outcome struct {
	RunID      string
	Step       string
	Mode       string
	Path       string
	Status     string
	Failed     bool
	Code       string
	Output     string
	Message    string
	RecordedAt time.Time
}

// Open creates or opens the ledger database at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path}
	if err := l.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database file.
func (l *Ledger) Path() string { return l.path }

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// StartRun records a run in the running state.
func (l *Ledger) StartRun(ctx context.Context, id, configPath string, startedAt time.Time) error {
	return l.exec(ctx,
		"INSERT INTO runs (id, config_path, started_at, status) VALUES (?, ?, ?, ?)",
		id, configPath, formatTime(startedAt), RunRunning,
	)
}

// FinishRun closes a run. A nil runErr marks it succeeded.
func (l *Ledger) FinishRun(ctx context.Context, id string, finishedAt time.Time, runErr error) error {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := l.db.ExecContext(ctx,
			"UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?",
			formatTime(finishedAt), status, msg, id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordOutcomes stores the outcomes of one archive step.
func (l *Ledger) RecordOutcomes(ctx context.Context, runID, step, mode string, outcomes []archive.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	recorded := formatTime(time.Now())
	return retryOnBusy(ctx, func() error {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin outcome tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes
			(run_id, step, mode, path, status, failed, code, output, message, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare outcome insert: %w", err)
		}
		defer stmt.Close()

		for _, o := range outcomes {
			if _, err := stmt.ExecContext(ctx,
				runID, step, mode, o.Path, o.Status.String(), boolToInt(o.Status.Failed()),
				o.Code, o.Output, o.Message, recorded,
			); err != nil {
				return fmt.Errorf("insert outcome for %s: %w", o.Path, err)
			}
		}
		return tx.Commit()
	})
}

// Runs returns the most recent runs, newest first, with outcome totals.
// A limit <= 0 returns every run.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT r.id, r.config_path, r.started_at, r.finished_at, r.status, r.error,
			COALESCE(SUM(CASE WHEN o.failed = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(o.failed), 0)
		FROM runs r
		LEFT JOIN outcomes o ON o.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.ConfigPath, &started, &finished, &run.Status, &run.Error, &run.Succeeded, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes returns the outcomes recorded for runID in insertion order.
func (l *Ledger) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT run_id, step, mode, path, status, failed, code, output, message, recorded_at
		FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o        Outcome
			failed   int
			recorded string
		)
		if err := rows.Scan(&o.RunID, &o.Step, &o.Mode, &o.Path, &o.Status, &failed, &o.Code, &o.Output, &o.Message, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Failed = failed != 0
		o.RecordedAt = parseTime(recorded)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (l *Ledger) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := l.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ archive.Recorder = (*Ledger)(nil)
