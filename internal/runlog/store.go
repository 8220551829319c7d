// Package runlog keeps a SQLite ledger of synthesis runs and of every
// stage invocation they made.
package runlog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/wasp/internal/timeutil"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// RunInfo is what is known when a run starts.
type RunInfo struct {
	ProgramVersion string
	InputCount     int
	OutDir         string
}

// RunSummary is what is known when a run ends. Platform, Tile and
// SynthesisDate may be empty if the run failed before they were resolved.
type RunSummary struct {
	Status        string
	Platform      string
	Tile          string
	SynthesisDate string
	Iterations    int
	ErrorClass    string
	ErrorMessage  string
}

// Run is one ledger row.
type Run struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	ProgramVersion string
	InputCount     int
	OutDir         string
	RunSummary
}

// StageRecord is one recorded stage invocation.
type StageRecord struct {
	Seq        int
	Stage      string
	Iteration  int
	ExitStatus int
	Duration   time.Duration
	Args       []string
	Error      string
	RecordedAt time.Time
}

// Store persists runs in a SQLite database.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock

	mu  sync.Mutex
	seq map[string]int
}

// Open opens (creating if needed) the ledger at path and migrates it to
// the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, clock: timeutil.RealClock{}, seq: make(map[string]int)}, nil
}

// SetClock replaces the clock used for timestamps.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new running run and returns its id.
func (s *Store) StartRun(info RunInfo) (string, error) {
	id := uuid.New().String()
	now := s.clock.Now().UnixNano()
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO synthesis_runs (run_id, started_at, status, program_version, input_count, out_dir)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, now, StatusRunning, info.ProgramVersion, info.InputCount, info.OutDir)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// RecordStage appends one stage invocation to a run.
func (s *Store) RecordStage(runID string, rec StageRecord) error {
	s.mu.Lock()
	s.seq[runID]++
	seq := s.seq[runID]
	s.mu.Unlock()

	if rec.Args == nil {
		rec.Args = []string{}
	}
	args, err := json.Marshal(rec.Args)
	if err != nil {
		return fmt.Errorf("failed to encode stage arguments: %w", err)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = s.clock.Now()
	}
	var errMsg interface{}
	if rec.Error != "" {
		errMsg = rec.Error
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO stage_invocations (
				run_id, seq, stage, iteration, exit_status, duration_ms, args_json, error_message, recorded_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, seq, rec.Stage, rec.Iteration, rec.ExitStatus, rec.Duration.Milliseconds(),
			string(args), errMsg, rec.RecordedAt.UnixNano())
		return err
	})
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(runID string, sum RunSummary) error {
	now := s.clock.Now().UnixNano()
	var res sql.Result
	err := retryOnBusy(func() error {
		var err error
		res, err = s.db.Exec(`
			UPDATE synthesis_runs
			SET finished_at = ?, status = ?, platform = ?, tile = ?, synthesis_date = ?,
			    iterations = ?, error_class = ?, error_message = ?
			WHERE run_id = ?`,
			now, sum.Status, sum.Platform, sum.Tile, sum.SynthesisDate,
			sum.Iterations, sum.ErrorClass, sum.ErrorMessage, runID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish %s: %w", runID, ErrRunNotFound)
	}
	s.mu.Lock()
	delete(s.seq, runID)
	s.mu.Unlock()
	return nil
}

const runColumns = `run_id, started_at, COALESCE(finished_at, 0), status, program_version, input_count, out_dir,
	COALESCE(platform, ''), COALESCE(tile, ''), COALESCE(synthesis_date, ''), iterations,
	COALESCE(error_class, ''), COALESCE(error_message, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var started, finished int64
	err := row.Scan(&r.RunID, &started, &finished, &r.Status, &r.ProgramVersion, &r.InputCount, &r.OutDir,
		&r.Platform, &r.Tile, &r.SynthesisDate, &r.Iterations, &r.ErrorClass, &r.ErrorMessage)
	if err != nil {
		return r, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	if finished != 0 {
		r.FinishedAt = time.Unix(0, finished).UTC()
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM synthesis_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run.
func (s *Store) GetRun(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM synthesis_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListStages returns the stage invocations of a run in execution order.
func (s *Store) ListStages(runID string) ([]StageRecord, error) {
	rows, err := s.db.Query(`
		SELECT seq, stage, iteration, exit_status, duration_ms, args_json, COALESCE(error_message, ''), recorded_at
		FROM stage_invocations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var rec StageRecord
		var durationMS, recorded int64
		var args string
		if err := rows.Scan(&rec.Seq, &rec.Stage, &rec.Iteration, &rec.ExitStatus, &durationMS, &args, &rec.Error, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &rec.Args); err != nil {
			return nil, fmt.Errorf("failed to decode stage arguments: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.RecordedAt = time.Unix(0, recorded).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
