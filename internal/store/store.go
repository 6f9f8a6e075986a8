// Package store persists chain run records to SQLite.
//
// One row is written to chain_runs per ChainResult, plus one step_results
// row per attempted step. The store uses the pure-Go modernc SQLite driver
// with WAL journaling and a single writer connection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fathomlabs/chaind/internal/chain"
)

// ErrRunNotFound indicates an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted chain execution.
type Run struct {
	ID              string        `json:"run_id"`
	Mode            chain.Mode    `json:"mode"`
	RepositoryRoot  string        `json:"repository_root"`
	Result          *chain.Result `json:"result"`
	ExecutionTimeMs int64         `json:"execution_time_ms"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

// Summary is the listing view of a run, without step payloads.
type Summary struct {
	ID             string     `json:"run_id"`
	ChainName      string     `json:"chain_name"`
	Status         chain.StopReason `json:"status"`
	Mode           chain.Mode `json:"mode"`
	CompletedSteps int        `json:"completed_steps"`
	TotalSteps     int        `json:"total_steps"`
	StartedAt      time.Time  `json:"started_at"`
}

// Store records chain runs in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if necessary) the run database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer connection; WAL gives crash recovery and NORMAL sync is
	// safe under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS chain_runs (
	id                TEXT PRIMARY KEY,
	chain_name        TEXT NOT NULL,
	status            TEXT NOT NULL,
	mode              TEXT NOT NULL,
	repository_root   TEXT NOT NULL,
	completed_steps   INTEGER NOT NULL,
	total_steps       INTEGER NOT NULL,
	final_state       TEXT NOT NULL DEFAULT '{}',
	error             TEXT NOT NULL DEFAULT '',
	execution_time_ms INTEGER NOT NULL DEFAULT 0,
	started_at        TIMESTAMP NOT NULL,
	finished_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chain_runs_chain ON chain_runs(chain_name);
CREATE INDEX IF NOT EXISTS idx_chain_runs_started ON chain_runs(started_at);

CREATE TABLE IF NOT EXISTS step_results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL REFERENCES chain_runs(id) ON DELETE CASCADE,
	step_index        INTEGER NOT NULL,
	task_name         TEXT NOT NULL,
	status            TEXT NOT NULL,
	output_data       TEXT NOT NULL DEFAULT '{}',
	error_message     TEXT NOT NULL DEFAULT '',
	error_type        TEXT NOT NULL DEFAULT '',
	execution_time_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_step_results_run ON step_results(run_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists a run and its step results in one transaction,
// assigning a run ID when none is set. Returns the run ID.
func (s *Store) RecordRun(ctx context.Context, run *Run) (string, error) {
	if run.Result == nil {
		return "", fmt.Errorf("run has no result")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	finalState, err := json.Marshal(run.Result.FinalState)
	if err != nil {
		return "", fmt.Errorf("encoding final state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chain_runs
			(id, chain_name, status, mode, repository_root, completed_steps,
			 total_steps, final_state, error, execution_time_ms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Result.ChainName, string(run.Result.Status), string(run.Mode),
		run.RepositoryRoot, run.Result.CompletedSteps, run.Result.TotalSteps,
		string(finalState), run.Result.Error, run.ExecutionTimeMs,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for i, step := range run.Result.Results {
		output, err := json.Marshal(step.OutputData)
		if err != nil {
			return "", fmt.Errorf("encoding step %d output: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_results
				(run_id, step_index, task_name, status, output_data,
				 error_message, error_type, execution_time_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, step.TaskName, string(step.Status), string(output),
			step.ErrorMessage, step.ErrorType, step.ExecutionTimeMs,
		)
		if err != nil {
			return "", fmt.Errorf("inserting step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	s.logger.Debug("run recorded",
		zap.String("run_id", run.ID),
		zap.String("chain", run.Result.ChainName),
		zap.String("status", string(run.Result.Status)),
	)
	return run.ID, nil
}

// GetRun loads one run with its step results.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id, Result: &chain.Result{}}
	var (
		status     string
		mode       string
		finalState string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT chain_name, status, mode, repository_root, completed_steps,
		       total_steps, final_state, error, execution_time_ms, started_at, finished_at
		FROM chain_runs WHERE id = ?`, id,
	).Scan(
		&run.Result.ChainName, &status, &mode, &run.RepositoryRoot,
		&run.Result.CompletedSteps, &run.Result.TotalSteps, &finalState,
		&run.Result.Error, &run.ExecutionTimeMs, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	run.Result.Status = chain.StopReason(status)
	run.Mode = chain.Mode(mode)
	if err := json.Unmarshal([]byte(finalState), &run.Result.FinalState); err != nil {
		return nil, fmt.Errorf("decoding final state for run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_name, status, output_data, error_message, error_type, execution_time_ms
		FROM step_results WHERE run_id = ? ORDER BY step_index`, id)
	if err != nil {
		return nil, fmt.Errorf("loading steps for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step   chain.TaskResult
			st     string
			output string
		)
		if err := rows.Scan(&step.TaskName, &st, &output, &step.ErrorMessage, &step.ErrorType, &step.ExecutionTimeMs); err != nil {
			return nil, fmt.Errorf("scanning step for run %s: %w", id, err)
		}
		step.Status = chain.TaskStatus(st)
		if err := json.Unmarshal([]byte(output), &step.OutputData); err != nil {
			return nil, fmt.Errorf("decoding step output for run %s: %w", id, err)
		}
		run.Result.Results = append(run.Result.Results, step)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chain_name, status, mode, completed_steps, total_steps, started_at
		FROM chain_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum    Summary
			status string
			mode   string
		)
		if err := rows.Scan(&sum.ID, &sum.ChainName, &status, &mode, &sum.CompletedSteps, &sum.TotalSteps, &sum.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning run summary: %w", err)
		}
		sum.Status = chain.StopReason(status)
		sum.Mode = chain.Mode(mode)
		out = append(out, sum)
	}
	return out, rows.Err()
}
