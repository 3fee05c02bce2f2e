package threshold

import (
	"fmt"

	"github.com/banshee-data/ditchline/internal/raster"
)

// Apply builds the binary candidate mask: cells strictly below the
// threshold become 1, other valid cells 0, nodata cells stay nodata.
// Strict < matches the "below the residual surface" semantics. For a
// PerCell result, both the input cell and the corresponding threshold
// cell must be valid; a nodata on either side propagates, and a grid
// whose shape differs from the input fails with ErrShapeMismatch.
func Apply(r *raster.Raster, result Result) (*raster.Raster, error) {
	switch t := result.(type) {
	case Scalar:
		out := make([]float64, len(r.Values))
		for i, v := range r.Values {
			switch {
			case r.IsNoData(v):
				out[i] = *r.NoData
			case v < t.Value:
				out[i] = 1
			default:
				out[i] = 0
			}
		}
		return r.WithValues(out)

	case PerCell:
		g := t.Grid
		if !r.SameShape(g) {
			return nil, fmt.Errorf("%w: threshold grid %dx%d, raster %dx%d",
				raster.ErrShapeMismatch, g.Width, g.Height, r.Width, r.Height)
		}
		out := make([]float64, len(r.Values))
		for i, v := range r.Values {
			tv := g.Values[i]
			switch {
			case r.IsNoData(v):
				out[i] = *r.NoData
			case g.IsNoData(tv):
				// Valid sample but no usable neighborhood threshold.
				// Propagate nodata only when the input raster carries
				// a sentinel to represent it.
				if r.NoData != nil {
					out[i] = *r.NoData
				} else {
					out[i] = 0
				}
			case v < tv:
				out[i] = 1
			default:
				out[i] = 0
			}
		}
		return r.WithValues(out)

	default:
		return nil, fmt.Errorf("%w: unknown threshold result type %T", ErrInvalidParameter, result)
	}
}
