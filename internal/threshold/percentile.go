package threshold

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/ditchline/internal/raster"
)

// Percentile thresholds at the P-th percentile of the valid samples,
// expressing the cutoff as "the lowest P% of residuals" independent of
// the absolute residual units.
type Percentile struct {
	P float64 // percentile in (0,100)
}

// Name returns the strategy's enumeration name.
func (s *Percentile) Name() string { return NamePercentile }

// Compute returns the P-th percentile of the valid samples using
// linear interpolation between order statistics at rank p/100*(n-1).
func (s *Percentile) Compute(r *raster.Raster) (Result, error) {
	if s.P <= 0 || s.P >= 100 {
		return nil, fmt.Errorf("%w: percentile must be in (0,100), got %g", ErrInvalidParameter, s.P)
	}
	samples, err := validSamples(r)
	if err != nil {
		return nil, err
	}
	sort.Float64s(samples)
	return Scalar{Value: interpolatedRank(samples, s.P)}, nil
}

// interpolatedRank evaluates the percentile p over sorted samples by
// interpolating between the neighboring order statistics at rank
// p/100*(n-1). Gonum's Quantile cumulant kinds follow a different
// definition, so this is computed directly.
func interpolatedRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
