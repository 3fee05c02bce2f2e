// Package rasterio reads and writes rasters: ESRI ASCII grids for
// interchange with GIS tooling, and a compact gob+gzip snapshot format
// for intermediate results. Spatial metadata passes through untouched;
// the package never interprets it.
package rasterio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/ditchline/internal/raster"
)

// ReadASC parses an ESRI ASCII grid: ncols/nrows/xllcorner/yllcorner/
// cellsize headers, an optional NODATA_value, then width*height
// whitespace-separated samples ordered north to south.
func ReadASC(rd io.Reader) (*raster.Raster, error) {
	br := bufio.NewReader(rd)

	var (
		width, height int
		meta          raster.Meta
		nodata        *float64
	)
	meta.CellSize = 1

	// Header lines: "key value" pairs until the first line that does
	// not start with a letter.
	for {
		peek, err := br.Peek(1)
		if err != nil {
			return nil, fmt.Errorf("read asc header: %w", err)
		}
		c := peek[0]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			break
		}
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read asc header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("read asc header: malformed line %q", strings.TrimSpace(line))
		}
		key := strings.ToLower(fields[0])
		switch key {
		case "ncols", "nrows":
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("read asc header: %s: %w", key, err)
			}
			if key == "ncols" {
				width = n
			} else {
				height = n
			}
		case "xllcorner", "yllcorner", "cellsize", "nodata_value":
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("read asc header: %s: %w", key, err)
			}
			switch key {
			case "xllcorner":
				meta.XLLCorner = v
			case "yllcorner":
				meta.YLLCorner = v
			case "cellsize":
				meta.CellSize = v
			case "nodata_value":
				nd := v
				nodata = &nd
			}
		default:
			return nil, fmt.Errorf("read asc header: unknown key %q", fields[0])
		}
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("read asc header: missing or invalid ncols/nrows (%dx%d)", width, height)
	}

	values := make([]float64, 0, width*height)
	sc := bufio.NewScanner(br)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("read asc sample %d: %w", len(values), err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read asc samples: %w", err)
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("read asc: have %d samples, want %d for %dx%d grid", len(values), width*height, width, height)
	}

	r, err := raster.New(width, height, values, nodata)
	if err != nil {
		return nil, err
	}
	r.Meta = meta
	return r, nil
}

// WriteASC writes r as an ESRI ASCII grid, one raster row per line.
// The NODATA_value header is emitted only when r carries a sentinel.
func WriteASC(w io.Writer, r *raster.Raster) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", r.Width)
	fmt.Fprintf(bw, "nrows %d\n", r.Height)
	fmt.Fprintf(bw, "xllcorner %s\n", formatSample(r.Meta.XLLCorner))
	fmt.Fprintf(bw, "yllcorner %s\n", formatSample(r.Meta.YLLCorner))
	fmt.Fprintf(bw, "cellsize %s\n", formatSample(r.Meta.CellSize))
	if r.NoData != nil {
		fmt.Fprintf(bw, "NODATA_value %s\n", formatSample(*r.NoData))
	}
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			if col > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return fmt.Errorf("write asc: %w", err)
				}
			}
			if _, err := bw.WriteString(formatSample(r.At(row, col))); err != nil {
				return fmt.Errorf("write asc: %w", err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write asc: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write asc: %w", err)
	}
	return nil
}

// formatSample renders a float with full round-trip precision without
// padding integers into exponent notation.
func formatSample(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
