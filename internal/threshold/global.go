package threshold

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ditchline/internal/raster"
)

// DefaultK is the default sigma multiplier for the global-statistical
// strategy: one and a half standard deviations below the mean.
const DefaultK = 1.5

// GlobalStatistical thresholds at mean minus K standard deviations of
// the valid samples. Cheap (single pass) and adapts the cutoff to the
// dataset's own spread rather than an absolute constant.
type GlobalStatistical struct {
	K float64
}

// Name returns the strategy's enumeration name.
func (s *GlobalStatistical) Name() string { return NameGlobalStatistical }

// Compute returns mean - K*sigma over the valid samples, with sigma
// the population standard deviation. A zero sigma with nonzero K is
// reported as degenerate: the threshold would equal every sample and
// the mask becomes all-or-nothing, which is a data problem the caller
// must see, not silently resolve.
func (s *GlobalStatistical) Compute(r *raster.Raster) (Result, error) {
	samples, err := validSamples(r)
	if err != nil {
		return nil, err
	}

	mean := stat.Mean(samples, nil)
	sigma := stat.PopStdDev(samples, nil)
	if sigma == 0 && s.K != 0 {
		return nil, fmt.Errorf("%w: all %d valid samples equal %g, zero standard deviation", ErrDegenerateInput, len(samples), mean)
	}

	return Scalar{Value: mean - s.K*sigma}, nil
}
