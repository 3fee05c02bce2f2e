package rasterio

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/banshee-data/ditchline/internal/raster"
)

// snapshot is the gob wire form of a raster. Kept separate from
// raster.Raster so the storage schema can evolve independently of the
// in-memory model.
type snapshot struct {
	Width  int
	Height int
	Values []float64
	NoData *float64
	Meta   raster.Meta
}

// SaveSnapshot writes r as a gzip-compressed gob blob. Residual grids
// compress well: nodata borders and smooth terrain repeat heavily.
func SaveSnapshot(w io.Writer, r *raster.Raster) error {
	gz := gzip.NewWriter(w)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(snapshot{
		Width:  r.Width,
		Height: r.Height,
		Values: r.Values,
		NoData: r.NoData,
		Meta:   r.Meta,
	}); err != nil {
		gz.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a raster written by SaveSnapshot, revalidating
// the raster invariants on the way in.
func LoadSnapshot(rd io.Reader) (*raster.Raster, error) {
	gz, err := gzip.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer gz.Close()

	var s snapshot
	if err := gob.NewDecoder(gz).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	r, err := raster.New(s.Width, s.Height, s.Values, s.NoData)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	r.Meta = s.Meta
	return r, nil
}
