// Package pipeline wires the stages together: residual raster in,
// threshold strategy, candidate mask, fusion with the road mask, fused
// raster out, and an audit record of the run. The compute path is pure;
// file and database I/O happen only at the edges.
package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ditchline/internal/ditchdb"
	"github.com/banshee-data/ditchline/internal/monitoring"
	"github.com/banshee-data/ditchline/internal/raster"
	"github.com/banshee-data/ditchline/internal/rasterio"
	"github.com/banshee-data/ditchline/internal/threshold"
	"github.com/banshee-data/ditchline/internal/timeutil"
)

// Config describes one pipeline run. Verbosity is an explicit per-run
// value, not process-global state.
type Config struct {
	Residual string // path to the elevation-residual raster
	RoadMask string // path to the road-proximity mask raster
	Output   string // path for the fused output raster

	Strategy threshold.Strategy

	Verbose bool
	Store   *ditchdb.RunStore // optional: record the run when set
	Clock   timeutil.Clock    // nil means the real clock
}

// Outcome holds the in-memory products of one processing pass.
type Outcome struct {
	Result     threshold.Result
	Candidates *raster.Raster // binary candidate mask
	Fused      *raster.Raster // candidates restricted to road proximity
}

// Summary reports what a run produced, for CLI output and the run
// record.
type Summary struct {
	RunID          string        `json:"run_id,omitempty"`
	Strategy       string        `json:"strategy"`
	Threshold      *float64      `json:"threshold,omitempty"` // scalar strategies only
	ValidCells     int64         `json:"valid_cells"`
	CandidateCells int64         `json:"candidate_cells"`
	FusedCells     int64         `json:"fused_cells"`
	ResidualMin    float64       `json:"residual_min"`
	ResidualMean   float64       `json:"residual_mean"`
	ResidualMax    float64       `json:"residual_max"`
	Duration       time.Duration `json:"-"`
}

// Process runs the compute stages over in-memory rasters: strategy,
// mask builder, fusion. The shape precondition is checked up front so
// a mismatched road mask fails before any windowed work starts.
func Process(residual, roads *raster.Raster, strategy threshold.Strategy) (*Outcome, error) {
	if !residual.SameShape(roads) {
		return nil, fmt.Errorf("%w: road mask %dx%d, residual %dx%d",
			raster.ErrShapeMismatch, roads.Width, roads.Height, residual.Width, residual.Height)
	}

	result, err := strategy.Compute(residual)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strategy.Name(), err)
	}

	candidates, err := threshold.Apply(residual, result)
	if err != nil {
		return nil, fmt.Errorf("apply threshold: %w", err)
	}

	fused, err := raster.Fuse(candidates, roads)
	if err != nil {
		return nil, fmt.Errorf("fuse road mask: %w", err)
	}

	return &Outcome{Result: result, Candidates: candidates, Fused: fused}, nil
}

// Run executes a configured pipeline end to end: read inputs, process,
// write the fused raster, and record the run if a store is configured.
// Errors propagate with their strategy-specific kind intact; no failure
// is downgraded to a default threshold.
func Run(cfg Config) (*Summary, error) {
	monitoring.SetDebug(cfg.Verbose)
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	residual, err := rasterio.ReadFile(cfg.Residual)
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("residual %s: %dx%d, %d valid cells",
		cfg.Residual, residual.Width, residual.Height, residual.ValidCount())

	roads, err := rasterio.ReadFile(cfg.RoadMask)
	if err != nil {
		return nil, err
	}

	outcome, err := Process(residual, roads, cfg.Strategy)
	if err != nil {
		return nil, err
	}

	if err := rasterio.WriteFile(cfg.Output, outcome.Fused); err != nil {
		return nil, err
	}

	summary := summarize(residual, outcome, cfg.Strategy)
	summary.Duration = clock.Since(start)

	if cfg.Store != nil {
		run, err := recordRun(cfg, summary)
		if err != nil {
			return nil, err
		}
		summary.RunID = run.RunID
	}

	monitoring.Logf("run complete: strategy=%s candidates=%d fused=%d in %s",
		summary.Strategy, summary.CandidateCells, summary.FusedCells, summary.Duration.Round(time.Millisecond))
	return summary, nil
}

func summarize(residual *raster.Raster, outcome *Outcome, strategy threshold.Strategy) *Summary {
	s := &Summary{
		Strategy:       strategy.Name(),
		ValidCells:     int64(residual.ValidCount()),
		CandidateCells: countSet(outcome.Candidates),
		FusedCells:     countSet(outcome.Fused),
	}
	if scalar, ok := outcome.Result.(threshold.Scalar); ok {
		v := scalar.Value
		s.Threshold = &v
	}
	if samples := residual.ValidSamples(); len(samples) > 0 {
		s.ResidualMin = floats.Min(samples)
		s.ResidualMax = floats.Max(samples)
		s.ResidualMean = stat.Mean(samples, nil)
	}
	return s
}

// countSet counts valid nonzero cells, which for a binary mask is the
// number of ones.
func countSet(r *raster.Raster) int64 {
	var n int64
	for _, v := range r.Values {
		if !r.IsNoData(v) && v != 0 {
			n++
		}
	}
	return n
}

func recordRun(cfg Config, summary *Summary) (*ditchdb.Run, error) {
	params, err := json.Marshal(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("marshal strategy params: %w", err)
	}
	run := &ditchdb.Run{
		ResidualPath:   cfg.Residual,
		RoadMaskPath:   cfg.RoadMask,
		OutputPath:     cfg.Output,
		Strategy:       summary.Strategy,
		ParamsJSON:     params,
		ThresholdValue: summary.Threshold,
		ValidCells:     summary.ValidCells,
		CandidateCells: summary.CandidateCells,
		FusedCells:     summary.FusedCells,
		DurationMs:     summary.Duration.Milliseconds(),
	}
	if err := cfg.Store.InsertRun(run); err != nil {
		return nil, err
	}
	return run, nil
}
