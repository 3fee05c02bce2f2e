package threshold

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/banshee-data/ditchline/internal/raster"
)

// Method selects the window weighting for the local-adaptive strategy.
type Method int

const (
	// MethodMean weights every valid cell in the window equally.
	MethodMean Method = iota
	// MethodGaussian weights cells by a 2D Gaussian kernel sized to
	// the window, renormalized over the valid cells present.
	MethodGaussian
)

// ParseMethod resolves a method name from flags or config.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "mean":
		return MethodMean, nil
	case "gaussian":
		return MethodGaussian, nil
	default:
		return 0, fmt.Errorf("%w: unknown local-adaptive method %q (valid: mean, gaussian)", ErrInvalidParameter, s)
	}
}

// String returns the method's enumeration name.
func (m Method) String() string {
	switch m {
	case MethodMean:
		return "mean"
	case MethodGaussian:
		return "gaussian"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// LocalAdaptive computes a per-cell threshold: the local weighted
// average of the BlockSize x BlockSize window centered on each cell,
// minus Offset. It tolerates spatial non-stationarity in the residual
// surface — what counts as "low" varies by neighborhood — at the cost
// of a windowed pass, which is row-partitioned across Workers
// goroutines (<=0 means GOMAXPROCS).
type LocalAdaptive struct {
	BlockSize int
	Method    Method
	Offset    float64
	Workers   int
}

// Name returns the strategy's enumeration name.
func (s *LocalAdaptive) Name() string { return NameLocalAdaptive }

// Compute returns a PerCell grid, nodata-aligned with the input: a
// cell that is nodata in the input, or whose entire window holds no
// valid sample, is nodata in the output. Windows that extend past the
// raster edge are clipped to the in-bounds region; nothing is padded.
func (s *LocalAdaptive) Compute(r *raster.Raster) (Result, error) {
	if s.BlockSize <= 0 || s.BlockSize%2 == 0 {
		return nil, fmt.Errorf("%w: block size must be a positive odd integer, got %d", ErrInvalidParameter, s.BlockSize)
	}
	if r.ValidCount() == 0 {
		return nil, fmt.Errorf("%w: raster has no valid samples", ErrInsufficientData)
	}

	var values []float64
	switch s.Method {
	case MethodMean:
		values = s.meanSurface(r)
	case MethodGaussian:
		values = s.gaussianSurface(r)
	default:
		return nil, fmt.Errorf("%w: unknown local-adaptive method %d", ErrInvalidParameter, int(s.Method))
	}

	grid, err := r.WithValues(values)
	if err != nil {
		return nil, err
	}
	return PerCell{Grid: grid}, nil
}

// meanSurface computes the unweighted local mean via summed-area
// tables over the masked values and the validity mask, so each window
// is O(1) regardless of block size.
func (s *LocalAdaptive) meanSurface(r *raster.Raster) []float64 {
	w, h := r.Width, r.Height
	half := s.BlockSize / 2

	// Integral images with a zero border row/column. sat holds sums of
	// valid samples, cnt holds counts of valid cells.
	sat := make([]float64, (w+1)*(h+1))
	cnt := make([]float64, (w+1)*(h+1))
	for row := 0; row < h; row++ {
		var sumV, sumC float64
		for col := 0; col < w; col++ {
			if v := r.At(row, col); !r.IsNoData(v) {
				sumV += v
				sumC++
			}
			sat[(row+1)*(w+1)+col+1] = sat[row*(w+1)+col+1] + sumV
			cnt[(row+1)*(w+1)+col+1] = cnt[row*(w+1)+col+1] + sumC
		}
	}

	out := make([]float64, w*h)
	parallelRows(h, s.Workers, func(r0, r1 int) {
		for row := r0; row < r1; row++ {
			y0 := max(row-half, 0)
			y1 := min(row+half, h-1)
			for col := 0; col < w; col++ {
				i := row*w + col
				if v := r.Values[i]; r.IsNoData(v) {
					out[i] = *r.NoData
					continue
				}
				x0 := max(col-half, 0)
				x1 := min(col+half, w-1)
				sum := windowSum(sat, w, x0, y0, x1, y1)
				n := windowSum(cnt, w, x0, y0, x1, y1)
				if n == 0 {
					// Unreachable once the center cell is valid, but
					// kept so clipped windows can never divide by zero.
					out[i] = *r.NoData
					continue
				}
				out[i] = sum/n - s.Offset
			}
		}
	})
	return out
}

// windowSum evaluates an inclusive window over an integral image with
// a one-cell zero border.
func windowSum(integral []float64, w, x0, y0, x1, y1 int) float64 {
	stride := w + 1
	return integral[(y1+1)*stride+x1+1] -
		integral[y0*stride+x1+1] -
		integral[(y1+1)*stride+x0] +
		integral[y0*stride+x0]
}

// gaussianSurface computes the Gaussian-weighted local mean as a
// normalized convolution: separable 1D passes over the masked values
// and the validity mask, then a ratio. Renormalizing by the smoothed
// mask makes the weights sum to one over whatever valid cells each
// clipped window actually contains.
func (s *LocalAdaptive) gaussianSurface(r *raster.Raster) []float64 {
	w, h := r.Width, r.Height
	half := s.BlockSize / 2
	kernel := gaussianKernel(s.BlockSize)

	// Masked values and mask as float grids.
	vm := make([]float64, w*h)
	m := make([]float64, w*h)
	for i, v := range r.Values {
		if !r.IsNoData(v) {
			vm[i] = v
			m[i] = 1
		}
	}

	// Horizontal pass.
	numH := make([]float64, w*h)
	denH := make([]float64, w*h)
	parallelRows(h, s.Workers, func(r0, r1 int) {
		for row := r0; row < r1; row++ {
			base := row * w
			for col := 0; col < w; col++ {
				var num, den float64
				j0 := max(col-half, 0)
				j1 := min(col+half, w-1)
				for j := j0; j <= j1; j++ {
					k := kernel[j-col+half]
					num += k * vm[base+j]
					den += k * m[base+j]
				}
				numH[base+col] = num
				denH[base+col] = den
			}
		}
	})

	// Vertical pass and ratio.
	out := make([]float64, w*h)
	parallelRows(h, s.Workers, func(r0, r1 int) {
		for row := r0; row < r1; row++ {
			j0 := max(row-half, 0)
			j1 := min(row+half, h-1)
			for col := 0; col < w; col++ {
				i := row*w + col
				if r.IsNoData(r.Values[i]) {
					out[i] = *r.NoData
					continue
				}
				var num, den float64
				for j := j0; j <= j1; j++ {
					k := kernel[j-row+half]
					num += k * numH[j*w+col]
					den += k * denH[j*w+col]
				}
				if den <= 0 {
					out[i] = *r.NoData
					continue
				}
				out[i] = num/den - s.Offset
			}
		}
	})
	return out
}

// gaussianKernel builds a 1D Gaussian of the given odd length with
// sigma = (length-1)/6, so three standard deviations span the half
// window and the kernel's effective support matches the block size.
// The kernel is left unnormalized: the normalized-convolution ratio
// cancels any constant factor.
func gaussianKernel(length int) []float64 {
	k := make([]float64, length)
	if length == 1 {
		k[0] = 1
		return k
	}
	sigma := float64(length-1) / 6
	half := length / 2
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	return k
}

// parallelRows runs fn over [0,height) partitioned into contiguous row
// bands, one per worker. Each band writes a disjoint slice of the
// output, so no synchronization beyond the WaitGroup is needed.
func parallelRows(height, workers int, fn func(r0, r1 int)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		fn(0, height)
		return
	}

	var wg sync.WaitGroup
	band := (height + workers - 1) / workers
	for r0 := 0; r0 < height; r0 += band {
		r1 := min(r0+band, height)
		wg.Add(1)
		go func(r0, r1 int) {
			defer wg.Done()
			fn(r0, r1)
		}(r0, r1)
	}
	wg.Wait()
}
