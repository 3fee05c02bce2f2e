package rasterio

import (
	"fmt"
	"os"
	"strings"

	"github.com/banshee-data/ditchline/internal/raster"
)

// ReadFile loads a raster from path, dispatching on extension:
// .asc for ESRI ASCII grids, .grid or .grid.gz for snapshots.
func ReadFile(path string) (*raster.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster %s: %w", path, err)
	}
	defer f.Close()

	switch {
	case strings.HasSuffix(path, ".asc"):
		r, err := ReadASC(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return r, nil
	case strings.HasSuffix(path, ".grid"), strings.HasSuffix(path, ".grid.gz"):
		r, err := LoadSnapshot(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("read %s: unsupported raster extension (want .asc, .grid or .grid.gz)", path)
	}
}

// WriteFile writes a raster to path, dispatching on extension the same
// way as ReadFile.
func WriteFile(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create raster %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".asc"):
		err = WriteASC(f, r)
	case strings.HasSuffix(path, ".grid"), strings.HasSuffix(path, ".grid.gz"):
		err = SaveSnapshot(f, r)
	default:
		err = fmt.Errorf("unsupported raster extension (want .asc, .grid or .grid.gz)")
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
