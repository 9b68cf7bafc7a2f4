package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rfi.flagger/internal/rfi/strategy"
	"github.com/banshee-data/rfi.flagger/internal/rfi/testset"
	"github.com/banshee-data/rfi.flagger/internal/timeutil"
)

// Run is one recorded flagging invocation.
type Run struct {
	RunID        string          `json:"run_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	Distribution string          `json:"distribution"`
	Method       string          `json:"method"`
	Tier         string          `json:"tier"`
	Result       strategy.Result `json:"result"`
	Background   string          `json:"background,omitempty"`
	Pattern      string          `json:"pattern,omitempty"`
	Seed         *uint64         `json:"seed,omitempty"`
	Score        *testset.Score  `json:"score,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// NewRun describes a result produced by cfg on a width x height grid.
func NewRun(cfg *strategy.ThresholdConfig, width, height int, res strategy.Result) *Run {
	return &Run{
		Width:        width,
		Height:       height,
		Distribution: cfg.Distribution().String(),
		Method:       cfg.Method().String(),
		Tier:         cfg.Tier().String(),
		Result:       res,
	}
}

// RunStore provides persistence for flagging runs and their passes.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used to stamp new runs.
func (s *RunStore) SetClock(c timeutil.Clock) { s.clock = c }

// Insert stores run and its passes in one transaction.
// If run.RunID is empty, a new UUID is generated; a zero CreatedAt is set
// from the store's clock.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert run: %w", err)
	}
	defer tx.Rollback()

	var tp, fp, fn sql.NullInt64
	if run.Score != nil {
		tp = sql.NullInt64{Int64: int64(run.Score.TruePositives), Valid: true}
		fp = sql.NullInt64{Int64: int64(run.Score.FalsePositives), Valid: true}
		fn = sql.NullInt64{Int64: int64(run.Score.FalseNegatives), Valid: true}
	}
	var seed sql.NullInt64
	if run.Seed != nil {
		seed = sql.NullInt64{Int64: int64(*run.Seed), Valid: true}
	}

	res := run.Result
	_, err = tx.Exec(`
		INSERT INTO flagging_runs (
			run_id, created_at_ns, width, height,
			distribution, method, tier,
			noise_mean, noise_stddev, noise_mode,
			time_factor, frequency_factor,
			flagged, filtered, duration_ns, notes,
			background, pattern, seed,
			true_positives, false_positives, false_negatives
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.UnixNano(), run.Width, run.Height,
		run.Distribution, run.Method, run.Tier,
		res.Noise.Mean, res.Noise.StdDev, res.Noise.Mode,
		res.TimeFactor, res.FrequencyFactor,
		res.Flagged, res.Filtered, res.Duration.Nanoseconds(), nullString(run.Notes),
		nullString(run.Background), nullString(run.Pattern), seed,
		tp, fp, fn,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, p := range res.Passes {
		_, err := tx.Exec(`
			INSERT INTO flagging_passes (run_id, seq, axis, length, threshold, flagged)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.RunID, i, string(p.Axis), p.Length, float64(p.Threshold), p.Flagged)
		if err != nil {
			return fmt.Errorf("insert pass %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `
	run_id, created_at_ns, width, height,
	distribution, method, tier,
	noise_mean, noise_stddev, noise_mode,
	time_factor, frequency_factor,
	flagged, filtered, duration_ns, notes,
	background, pattern, seed,
	true_positives, false_positives, false_negatives`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	r := &Run{}
	var createdNs, durationNs int64
	var notes, background, pattern sql.NullString
	var seed, tp, fp, fn sql.NullInt64
	err := row.Scan(
		&r.RunID, &createdNs, &r.Width, &r.Height,
		&r.Distribution, &r.Method, &r.Tier,
		&r.Result.Noise.Mean, &r.Result.Noise.StdDev, &r.Result.Noise.Mode,
		&r.Result.TimeFactor, &r.Result.FrequencyFactor,
		&r.Result.Flagged, &r.Result.Filtered, &durationNs, &notes,
		&background, &pattern, &seed,
		&tp, &fp, &fn,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, createdNs)
	r.Result.Duration = time.Duration(durationNs)
	r.Notes = notes.String
	r.Background = background.String
	r.Pattern = pattern.String
	if seed.Valid {
		v := uint64(seed.Int64)
		r.Seed = &v
	}
	if tp.Valid && fp.Valid && fn.Valid {
		r.Score = &testset.Score{
			TruePositives:  int(tp.Int64),
			FalsePositives: int(fp.Int64),
			FalseNegatives: int(fn.Int64),
		}
	}
	return r, nil
}

// Get returns the run with the given ID and its passes, or sql.ErrNoRows.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM flagging_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	passes, err := s.passes(runID)
	if err != nil {
		return nil, err
	}
	r.Result.Passes = passes
	return r, nil
}

func (s *RunStore) passes(runID string) ([]strategy.Pass, error) {
	rows, err := s.db.Query(`
		SELECT axis, length, threshold, flagged
		FROM flagging_passes
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var passes []strategy.Pass
	for rows.Next() {
		var p strategy.Pass
		var axis string
		var threshold float64
		if err := rows.Scan(&axis, &p.Length, &threshold, &p.Flagged); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.Axis = strategy.Axis(axis)
		p.Threshold = float32(threshold)
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// List returns the most recent runs first, without their passes. A limit
// of zero or less returns every run.
func (s *RunStore) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM flagging_runs
		ORDER BY created_at_ns DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Delete removes a run and, through the foreign key, its passes.
func (s *RunStore) Delete(runID string) error {
	result, err := s.db.Exec("DELETE FROM flagging_runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
