// Package raster provides the single-band grid model shared by the
// thresholding pipeline: row-major float64 samples, an explicit nodata
// sentinel, and opaque spatial metadata carried through transformations.
package raster

import (
	"fmt"
	"math"
)

// Meta holds spatial metadata for a raster. The core never interprets
// these values; they are read from input files and written back out
// unchanged so downstream GIS tooling can georeference results.
type Meta struct {
	XLLCorner float64 // x coordinate of the lower-left corner
	YLLCorner float64 // y coordinate of the lower-left corner
	CellSize  float64 // edge length of one cell in map units
	Proj      string  // projection description, if any
}

// Raster is a single-band grid of float64 samples in row-major order
// (row 0 is the northernmost row). A nil NoData means every sample is
// valid. Rasters are immutable by convention: transformations allocate
// a new Raster rather than writing into an existing one.
type Raster struct {
	Width  int
	Height int
	Values []float64
	NoData *float64
	Meta   Meta
}

// New constructs a Raster and validates its invariants: positive
// dimensions, len(values) == width*height, and every non-nodata sample
// finite. NaN or Inf samples that are not the nodata sentinel are
// rejected so they cannot leak into downstream statistics.
func New(width, height int, values []float64, nodata *float64) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: dimensions must be positive, got %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("raster: have %d values, want %d for %dx%d grid", len(values), width*height, width, height)
	}
	r := &Raster{Width: width, Height: height, Values: values, NoData: nodata}
	for i, v := range values {
		if r.IsNoData(v) {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("raster: non-finite sample %g at cell (%d,%d)", v, i/width, i%width)
		}
	}
	return r, nil
}

// Index returns the flat index of cell (row, col).
func (r *Raster) Index(row, col int) int {
	return row*r.Width + col
}

// At returns the sample at cell (row, col).
func (r *Raster) At(row, col int) float64 {
	return r.Values[row*r.Width+col]
}

// IsNoData reports whether v is the raster's nodata sentinel. A NaN
// sentinel matches any NaN sample, since NaN != NaN under IEEE-754.
func (r *Raster) IsNoData(v float64) bool {
	if r.NoData == nil {
		return false
	}
	if math.IsNaN(*r.NoData) {
		return math.IsNaN(v)
	}
	return v == *r.NoData
}

// ValidSamples returns a fresh slice holding the non-nodata samples in
// row-major order. The caller owns the slice and may sort it in place.
func (r *Raster) ValidSamples() []float64 {
	out := make([]float64, 0, len(r.Values))
	for _, v := range r.Values {
		if !r.IsNoData(v) {
			out = append(out, v)
		}
	}
	return out
}

// ValidCount returns the number of non-nodata samples.
func (r *Raster) ValidCount() int {
	n := 0
	for _, v := range r.Values {
		if !r.IsNoData(v) {
			n++
		}
	}
	return n
}

// WithValues derives a new Raster sharing this raster's shape, nodata
// sentinel and metadata, but holding the given sample slice. It is the
// building block for transformations that preserve the grid geometry.
func (r *Raster) WithValues(values []float64) (*Raster, error) {
	if len(values) != r.Width*r.Height {
		return nil, fmt.Errorf("raster: have %d values, want %d for %dx%d grid", len(values), r.Width*r.Height, r.Width, r.Height)
	}
	return &Raster{
		Width:  r.Width,
		Height: r.Height,
		Values: values,
		NoData: r.NoData,
		Meta:   r.Meta,
	}, nil
}

// SameShape reports whether two rasters have identical dimensions.
func (r *Raster) SameShape(other *Raster) bool {
	return r.Width == other.Width && r.Height == other.Height
}
