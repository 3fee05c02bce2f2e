package threshold

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/banshee-data/ditchline/internal/raster"
)

// DefaultMaxIterations caps Lloyd's algorithm. Convergence on 1-D data
// is normally reached in a handful of iterations; the cap guards
// pathological oscillation.
const DefaultMaxIterations = 300

// KMeans thresholds at the smallest centroid of a 1-D k-means
// clustering over the valid samples, interpreting that centroid as the
// center of the "low residual" cluster. The threshold emerges from the
// data's own value distribution without an assumed shape or fixed
// fraction; reproducibility across runs requires a fixed Seed.
type KMeans struct {
	Clusters      int
	Seed          int64
	MaxIterations int // 0 means DefaultMaxIterations
}

// Name returns the strategy's enumeration name.
func (s *KMeans) Name() string { return NameClustering }

// Compute runs Lloyd's algorithm with deterministic seeding: initial
// centroids are distinct sample values drawn from a PRNG seeded with
// Seed, so identical (data, clusters, seed) yields a bit-identical
// threshold. Iteration stops at an assignment fixed point or the
// iteration cap; empty clusters keep their previous centroid.
func (s *KMeans) Compute(r *raster.Raster) (Result, error) {
	if s.Clusters < 2 {
		return nil, fmt.Errorf("%w: clustering needs at least 2 clusters, got %d", ErrInvalidParameter, s.Clusters)
	}
	samples, err := validSamples(r)
	if err != nil {
		return nil, err
	}
	if len(samples) < s.Clusters {
		return nil, fmt.Errorf("%w: %d valid samples for %d clusters", ErrInsufficientData, len(samples), s.Clusters)
	}
	if allEqual(samples) {
		return nil, fmt.Errorf("%w: all %d valid samples equal %g, clustering undefined", ErrDegenerateInput, len(samples), samples[0])
	}

	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	centroids := s.seedCentroids(samples)
	assign := make([]int, len(samples))
	sums := make([]float64, s.Clusters)
	counts := make([]int, s.Clusters)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := range sums {
			sums[i] = 0
			counts[i] = 0
		}

		// Assignment step. Ties break toward the lowest centroid
		// index, keeping the result deterministic.
		for i, v := range samples {
			best := 0
			bestDist := math.Abs(v - centroids[0])
			for c := 1; c < s.Clusters; c++ {
				if d := math.Abs(v - centroids[c]); d < bestDist {
					best = c
					bestDist = d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
			sums[best] += v
			counts[best]++
		}

		// Update step.
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}

		if !changed && iter > 0 {
			break
		}
	}

	low := centroids[0]
	for _, c := range centroids[1:] {
		if c < low {
			low = c
		}
	}
	return Scalar{Value: low}, nil
}

// seedCentroids draws initial centroids from the samples using a PRNG
// seeded with s.Seed: a seeded permutation is scanned for distinct
// values, falling back to the permutation order if the data holds
// fewer distinct values than clusters. Sorted so centroid indexes are
// ordered low to high from the start.
func (s *KMeans) seedCentroids(samples []float64) []float64 {
	rng := rand.New(rand.NewSource(s.Seed))
	perm := rng.Perm(len(samples))

	centroids := make([]float64, 0, s.Clusters)
	seen := make(map[float64]bool, s.Clusters)
	for _, i := range perm {
		if len(centroids) == s.Clusters {
			break
		}
		if v := samples[i]; !seen[v] {
			seen[v] = true
			centroids = append(centroids, v)
		}
	}
	// Fewer distinct values than clusters: pad with duplicates so the
	// algorithm still runs; surplus clusters simply stay empty.
	for i := 0; len(centroids) < s.Clusters; i++ {
		centroids = append(centroids, samples[perm[i%len(perm)]])
	}

	sort.Float64s(centroids)
	return centroids
}

func allEqual(samples []float64) bool {
	for _, v := range samples[1:] {
		if v != samples[0] {
			return false
		}
	}
	return true
}
