// Package threshold turns a continuous elevation-residual raster into a
// binary ditch-candidate mask. Four interchangeable strategies decide
// which residual values are "low enough": a global statistical cutoff,
// a percentile cutoff, a windowed local-adaptive surface, and a 1-D
// k-means clustering cutoff. All four implement the Strategy contract
// and are selected through an explicit, validated enumeration.
package threshold

import (
	"errors"
	"fmt"

	"github.com/banshee-data/ditchline/internal/raster"
)

// Error taxonomy. Strategies wrap these sentinels with the failing
// precondition; callers discriminate with errors.Is. No strategy ever
// substitutes a default threshold on failure — callers decide whether
// to fall back to a different strategy or abort.
var (
	// ErrInvalidParameter reports a caller-supplied argument outside
	// its documented domain (even block size, percentile outside
	// (0,100), fewer than two clusters, unknown strategy name).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientData reports too few valid samples for the
	// requested computation.
	ErrInsufficientData = errors.New("insufficient valid data")

	// ErrDegenerateInput reports valid data that lacks the variation
	// the algorithm requires (zero spread, all-identical samples).
	ErrDegenerateInput = errors.New("degenerate input")
)

// Result is the outcome of a strategy: either one scalar cutoff for
// the whole raster or one cutoff per cell.
type Result interface {
	isResult()
}

// Scalar is a single cutoff applied uniformly to every cell.
type Scalar struct {
	Value float64
}

func (Scalar) isResult() {}

// PerCell is a per-cell cutoff grid with the same shape as the raster
// it was computed from, nodata-aligned with the input where a cell's
// neighborhood held no valid samples.
type PerCell struct {
	Grid *raster.Raster
}

func (PerCell) isResult() {}

// Strategy computes a threshold Result from a residual raster. All
// implementations are pure: they read the input and allocate fresh
// outputs, so a Strategy value is safe to reuse across rasters.
type Strategy interface {
	// Name returns the strategy's enumeration name.
	Name() string

	// Compute derives the threshold for the given raster. Residuals
	// follow the "lower is more ditch-like" convention, so thresholds
	// bound candidates from above.
	Compute(r *raster.Raster) (Result, error)
}

// Strategy enumeration names. Selection is by explicit name, never by
// dynamic dispatch, so unknown strategies fail loudly at parse time.
const (
	NameGlobalStatistical = "global_statistical"
	NamePercentile        = "percentile"
	NameLocalAdaptive     = "local_adaptive"
	NameClustering        = "clustering"
)

// Params carries the union of per-strategy parameters as parsed from
// flags or a defaults file. Each strategy reads only its own fields.
type Params struct {
	K         float64 // global_statistical: sigma multiplier
	P         float64 // percentile: percentile in (0,100)
	BlockSize int     // local_adaptive: odd window side length
	Method    string  // local_adaptive: "mean" or "gaussian"
	Offset    float64 // local_adaptive: subtracted from the local mean
	Clusters  int     // clustering: number of centroids
	Seed      int64   // clustering: PRNG seed for reproducible runs
	Workers   int     // local_adaptive: row-partition parallelism, <=0 means GOMAXPROCS
}

// ParseStrategy resolves a strategy enumeration name and its
// parameters into a Strategy. Parameter domains are validated here for
// fields that can be checked without data; data-dependent failures
// (insufficient or degenerate samples) surface from Compute.
func ParseStrategy(name string, p Params) (Strategy, error) {
	switch name {
	case NameGlobalStatistical:
		return &GlobalStatistical{K: p.K}, nil
	case NamePercentile:
		if p.P <= 0 || p.P >= 100 {
			return nil, fmt.Errorf("%w: percentile must be in (0,100), got %g", ErrInvalidParameter, p.P)
		}
		return &Percentile{P: p.P}, nil
	case NameLocalAdaptive:
		method, err := ParseMethod(p.Method)
		if err != nil {
			return nil, err
		}
		if p.BlockSize <= 0 || p.BlockSize%2 == 0 {
			return nil, fmt.Errorf("%w: block size must be a positive odd integer, got %d", ErrInvalidParameter, p.BlockSize)
		}
		return &LocalAdaptive{BlockSize: p.BlockSize, Method: method, Offset: p.Offset, Workers: p.Workers}, nil
	case NameClustering:
		if p.Clusters < 2 {
			return nil, fmt.Errorf("%w: clustering needs at least 2 clusters, got %d", ErrInvalidParameter, p.Clusters)
		}
		return &KMeans{Clusters: p.Clusters, Seed: p.Seed}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q (valid: %s, %s, %s, %s)",
			ErrInvalidParameter, name,
			NameGlobalStatistical, NamePercentile, NameLocalAdaptive, NameClustering)
	}
}

// validSamples gathers the raster's valid-sample view, failing with
// ErrInsufficientData when it is empty. Every strategy that needs
// global statistics goes through here so the empty case is never
// computed on silently.
func validSamples(r *raster.Raster) ([]float64, error) {
	samples := r.ValidSamples()
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: raster has no valid samples", ErrInsufficientData)
	}
	return samples, nil
}
