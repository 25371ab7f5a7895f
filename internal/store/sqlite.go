package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/makespan/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a fresh database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.State == "" {
		run.State = model.RunStateRunning
	}
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_name, machine_count, job_count, seed, config, status,
		 upper_bound, lower_bound, known_optimum, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputName, run.MachineCount, run.JobCount, run.Seed, run.Config, string(run.State),
		run.UpperBound, run.LowerBound, run.KnownOptimum, run.StartedAt.Format(time.RFC3339Nano),
	)
	return err
}

// FinishRun moves a RUNNING run to its terminal state and records the final bounds.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, state model.RunState, upper, lower uint32) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", id, "state", state)

	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}
	if !run.State.CanTransitionTo(state) {
		return fmt.Errorf("run %s: invalid transition %s -> %s", id, run.State, state)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET status=?, upper_bound=?, lower_bound=?, finished_at=? WHERE id=?`,
		string(state), upper, lower, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	return err
}

const runColumns = `id, input_name, machine_count, job_count, seed, config, status,
	upper_bound, lower_bound, known_optimum, started_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var run model.Run
	var state, startedAt string
	var finishedAt *string

	if err := row.Scan(&run.ID, &run.InputName, &run.MachineCount, &run.JobCount, &run.Seed, &run.Config,
		&state, &run.UpperBound, &run.LowerBound, &run.KnownOptimum, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	run.State = model.RunState(state)
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *finishedAt)
		run.FinishedAt = &t
	}
	return &run, nil
}

// --- Solutions ---

// SaveSolutions stores sols for runID in a single transaction. Ranks are
// taken from the views; a repeated rank replaces the earlier row.
func (s *SQLiteStore) SaveSolutions(ctx context.Context, runID string, sols []model.SolutionView) error {
	s.logger.Debug("sql", "op", "insert", "table", "solutions", "run_id", runID, "count", len(sols))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, sol := range sols {
		scheduleJSON, err := json.Marshal(sol.Schedule)
		if err != nil {
			return fmt.Errorf("marshal schedule: %w", err)
		}
		algs := make([]string, len(sol.Algorithms))
		for i, a := range sol.Algorithms {
			algs[i] = a.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO solutions (run_id, rank, c_max, algorithms, config, schedule, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, sol.Rank, sol.CMax, strings.Join(algs, "_"), sol.Config, string(scheduleJSON), now,
		); err != nil {
			return fmt.Errorf("insert solution %d: %w", sol.Rank, err)
		}
	}
	return tx.Commit()
}

// ListSolutions returns the stored solutions of runID ordered by rank.
func (s *SQLiteStore) ListSolutions(ctx context.Context, runID string) ([]model.SolutionView, error) {
	s.logger.Debug("sql", "op", "list", "table", "solutions", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, c_max, algorithms, config, schedule FROM solutions WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sols []model.SolutionView
	for rows.Next() {
		var sol model.SolutionView
		var algs, scheduleJSON string
		if err := rows.Scan(&sol.Rank, &sol.CMax, &algs, &sol.Config, &scheduleJSON); err != nil {
			return nil, err
		}
		if algs != "" {
			for _, a := range strings.Split(algs, "_") {
				sol.Algorithms = append(sol.Algorithms, model.Algorithm(a))
			}
		}
		if err := json.Unmarshal([]byte(scheduleJSON), &sol.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
		sols = append(sols, sol)
	}
	return sols, rows.Err()
}
