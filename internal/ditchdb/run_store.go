package ditchdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run records one complete pipeline invocation: inputs, strategy,
// parameters, the threshold it produced (scalar strategies only) and
// the per-stage cell counts.
type Run struct {
	RunID          string          `json:"run_id"`
	CreatedAtNs    int64           `json:"created_at_ns"`
	ResidualPath   string          `json:"residual_path"`
	RoadMaskPath   string          `json:"road_mask_path"`
	OutputPath     string          `json:"output_path"`
	Strategy       string          `json:"strategy"`
	ParamsJSON     json.RawMessage `json:"params_json,omitempty"`
	ThresholdValue *float64        `json:"threshold_value,omitempty"` // nil for per-cell strategies
	ValidCells     int64           `json:"valid_cells"`
	CandidateCells int64           `json:"candidate_cells"`
	FusedCells     int64           `json:"fused_cells"`
	DurationMs     int64           `json:"duration_ms"`
}

// RunStore provides persistence for pipeline runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// InsertRun writes a new run record. An empty RunID is replaced with a
// fresh UUID; a zero CreatedAtNs with the current time.
func (s *RunStore) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}

	query := `
		INSERT INTO ditch_runs (
			run_id, created_at_ns, residual_path, road_mask_path, output_path,
			strategy, params_json, threshold_value,
			valid_cells, candidate_cells, fused_cells, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var params any
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}
	var threshold any
	if run.ThresholdValue != nil {
		threshold = *run.ThresholdValue
	}

	_, err := s.db.Exec(query,
		run.RunID,
		run.CreatedAtNs,
		run.ResidualPath,
		run.RoadMaskPath,
		run.OutputPath,
		run.Strategy,
		params,
		threshold,
		run.ValidCells,
		run.CandidateCells,
		run.FusedCells,
		run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	query := `
		SELECT run_id, created_at_ns, residual_path, road_mask_path, output_path,
		       strategy, params_json, threshold_value,
		       valid_cells, candidate_cells, fused_cells, duration_ms
		FROM ditch_runs
		WHERE run_id = ?
	`
	run, err := scanRun(s.db.QueryRow(query, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive
// limit defaults to 50.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT run_id, created_at_ns, residual_path, road_mask_path, output_path,
		       strategy, params_json, threshold_value,
		       valid_cells, candidate_cells, fused_cells, duration_ms
		FROM ditch_runs
		ORDER BY created_at_ns DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var params sql.NullString
	var threshold sql.NullFloat64

	err := sc.Scan(
		&run.RunID,
		&run.CreatedAtNs,
		&run.ResidualPath,
		&run.RoadMaskPath,
		&run.OutputPath,
		&run.Strategy,
		&params,
		&threshold,
		&run.ValidCells,
		&run.CandidateCells,
		&run.FusedCells,
		&run.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	if params.Valid {
		run.ParamsJSON = json.RawMessage(params.String)
	}
	if threshold.Valid {
		v := threshold.Float64
		run.ThresholdValue = &v
	}
	return &run, nil
}
