package raster

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when two rasters expected to share a
// grid do not. Wrapped messages name the dimension that differs.
var ErrShapeMismatch = errors.New("raster shape mismatch")

// Fuse combines two aligned rasters by element-wise multiplication,
// typically a candidate mask against a road-proximity mask. Nodata
// propagates: a cell that is nodata in either input is nodata in the
// output. The operation is defined as a general product so weighted
// (non-binary) masks fuse the same way.
//
// The output carries a's metadata and a's nodata sentinel; if a has no
// sentinel but b does, b's sentinel is adopted so propagated nodata
// cells remain representable.
func Fuse(a, b *Raster) (*Raster, error) {
	if a.Width != b.Width {
		return nil, fmt.Errorf("%w: width %d != %d", ErrShapeMismatch, a.Width, b.Width)
	}
	if a.Height != b.Height {
		return nil, fmt.Errorf("%w: height %d != %d", ErrShapeMismatch, a.Height, b.Height)
	}

	nodata := a.NoData
	if nodata == nil {
		nodata = b.NoData
	}

	out := make([]float64, len(a.Values))
	for i, av := range a.Values {
		bv := b.Values[i]
		if a.IsNoData(av) || b.IsNoData(bv) {
			out[i] = *nodata
			continue
		}
		out[i] = av * bv
	}

	return &Raster{
		Width:  a.Width,
		Height: a.Height,
		Values: out,
		NoData: nodata,
		Meta:   a.Meta,
	}, nil
}
