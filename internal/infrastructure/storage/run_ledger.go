package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/ports"
)

// Supported ledger drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout keeps timestamps lexically sortable as TEXT on every driver.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const ledgerSchema = `CREATE TABLE IF NOT EXISTS task_runs (
	id          TEXT PRIMARY KEY,
	task        TEXT NOT NULL,
	trigger_by  TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
)`

var runColumns = []string{"id", "task", "trigger_by", "started_at", "finished_at", "status", "error"}

// RunLedger persists task executions into SQLite or Postgres.
type RunLedger struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.RunLedger = (*RunLedger)(nil)

// OpenRunLedger connects to the configured database and ensures the schema exists.
func OpenRunLedger(ctx context.Context, driver, dsn string) (*RunLedger, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver == DriverSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	ledger, err := NewRunLedger(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewRunLedger wires an existing sql.DB and migrates it.
func NewRunLedger(ctx context.Context, db *sql.DB, driver string) (*RunLedger, error) {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	r := &RunLedger{db: db, sb: sq.StatementBuilder.PlaceholderFormat(placeholder)}

	if r.db != nil {
		if _, err := r.db.ExecContext(ctx, ledgerSchema); err != nil {
			return nil, fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return r, nil
}

// Close releases the database handle.
func (r *RunLedger) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// StartRun inserts a running entry and returns it with a fresh id.
func (r *RunLedger) StartRun(ctx context.Context, task, trigger string, startedAt time.Time) (domain.TaskRun, error) {
	run := domain.TaskRun{
		ID:        uuid.NewString(),
		Task:      task,
		Trigger:   trigger,
		StartedAt: startedAt,
		Status:    domain.RunRunning,
	}
	if r.db == nil {
		return run, nil
	}

	_, err := r.sb.Insert("task_runs").
		Columns(runColumns...).
		Values(run.ID, run.Task, run.Trigger, formatTime(run.StartedAt), nil, string(run.Status), "").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return domain.TaskRun{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the outcome of a run started with StartRun.
func (r *RunLedger) FinishRun(ctx context.Context, run domain.TaskRun) error {
	if r.db == nil {
		return nil
	}

	var finished any
	if run.FinishedAt != nil {
		finished = formatTime(*run.FinishedAt)
	}

	res, err := r.sb.Update("task_runs").
		Set("finished_at", finished).
		Set("status", string(run.Status)).
		Set("error", run.Error).
		Where(sq.Eq{"id": run.ID}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

// LatestRuns returns the most recent run of every task, ordered by task name.
func (r *RunLedger) LatestRuns(ctx context.Context) ([]domain.TaskRun, error) {
	if r.db == nil {
		return nil, nil
	}

	cols := make([]string, len(runColumns))
	for i, c := range runColumns {
		cols[i] = "r." + c
	}

	rows, err := r.sb.Select(cols...).
		From("task_runs r").
		Where("r.started_at = (SELECT MAX(l.started_at) FROM task_runs l WHERE l.task = r.task)").
		OrderBy("r.task").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var result []domain.TaskRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		result = append(result, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

func scanRun(rows *sql.Rows) (domain.TaskRun, error) {
	var (
		run      domain.TaskRun
		started  string
		finished sql.NullString
		status   string
	)
	if err := rows.Scan(&run.ID, &run.Task, &run.Trigger, &started, &finished, &status, &run.Error); err != nil {
		return domain.TaskRun{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return domain.TaskRun{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		at, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return domain.TaskRun{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &at
	}
	run.Status = domain.RunStatus(status)
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
