// Package cluster provides the partition clusterer used for both levels of
// the topic hierarchy.
package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Tolerance is the relative inertia change below which Lloyd iterations stop.
const Tolerance = 1e-4

// assignWorkers is the number of goroutines used for the assignment step.
const assignWorkers = 4

// Verify interface compliance.
var _ driven.Partitioner = (*KMeans)(nil)

// KMeans is a seeded k-means++ partitioner. It runs NInit initialisations
// with consecutive seeds and keeps the one with the lowest inertia, so equal
// inputs and settings always give identical labels and centroids.
type KMeans struct{}

// NewKMeans creates a new k-means partitioner.
func NewKMeans() *KMeans {
	return &KMeans{}
}

// Partition clusters points into k groups.
func (km *KMeans) Partition(
	ctx context.Context,
	points []domain.Point,
	k int,
	settings domain.PartitionSettings,
) (*driven.Partition, error) {
	if len(points) == 0 {
		return nil, domain.ErrEmptyInput
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", domain.ErrInvalidSettings, k)
	}
	if k > len(points) {
		return nil, fmt.Errorf("%w: k (%d) exceeds %d points", domain.ErrTooManyClusters, k, len(points))
	}

	vectors := make([][]float64, len(points))
	for i, p := range points {
		vectors[i] = p
	}

	numInit := max(settings.NInit, 1)
	maxIter := max(settings.MaxIter, 1)

	var best *driven.Partition
	for n := 0; n < numInit; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate := fitOnce(vectors, k, maxIter, settings.Seed+int64(n))
		// Strict comparison keeps the earliest seed on ties.
		if best == nil || candidate.Inertia < best.Inertia {
			best = candidate
		}
	}
	return best, nil
}

// fitOnce runs a single k-means initialisation and iteration cycle.
func fitOnce(vectors [][]float64, k, maxIter int, seed int64) *driven.Partition {
	rng := rand.New(rand.NewSource(seed))

	centroids := kmeansppInit(vectors, k, rng)
	labels := make([]int, len(vectors))

	prevInertia := math.MaxFloat64
	var inertia float64
	for iter := 0; iter < maxIter; iter++ {
		inertia = assignClusters(vectors, centroids, labels)

		if math.Abs(prevInertia-inertia) <= Tolerance*math.Max(inertia, 1e-12) {
			break
		}
		prevInertia = inertia

		updateCentroids(vectors, centroids, labels)
	}

	out := make([]domain.Point, k)
	for c := range centroids {
		out[c] = domain.Point(centroids[c])
	}
	return &driven.Partition{Labels: labels, Centroids: out, Inertia: inertia}
}

// kmeansppInit picks k starting centroids with probability proportional to
// the squared distance from the centroids chosen so far.
func kmeansppInit(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, k)
	centroids[0] = clone(vectors[rng.Intn(n)])

	distances := make([]float64, n)
	for i := range distances {
		distances[i] = math.MaxFloat64
	}

	for c := 1; c < k; c++ {
		var total float64
		for i, vec := range vectors {
			if d := squaredEuclidean(vec, centroids[c-1]); d < distances[i] {
				distances[i] = d
			}
			total += distances[i]
		}

		threshold := rng.Float64() * total
		var cumulative float64
		chosen := n - 1
		for i, d := range distances {
			cumulative += d
			if cumulative >= threshold && d > 0 {
				chosen = i
				break
			}
		}
		centroids[c] = clone(vectors[chosen])
	}
	return centroids
}

// assignClusters assigns each vector to its nearest centroid and returns the
// inertia. Work is split into fixed chunks whose partial sums are added in
// chunk order, so the result does not depend on goroutine scheduling.
func assignClusters(vectors, centroids [][]float64, labels []int) float64 {
	chunkSize := (len(vectors) + assignWorkers - 1) / assignWorkers
	partial := make([]float64, assignWorkers)

	var wg sync.WaitGroup
	for w := 0; w < assignWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, len(vectors))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			var local float64
			for i := start; i < end; i++ {
				c, d := nearest(vectors[i], centroids)
				labels[i] = c
				local += d
			}
			partial[w] = local
		}(w, start, end)
	}
	wg.Wait()

	var total float64
	for _, p := range partial {
		total += p
	}
	return total
}

// updateCentroids recomputes centroids as means of assigned vectors. An empty
// cluster is moved onto the vector farthest from its current centroid.
func updateCentroids(vectors, centroids [][]float64, labels []int) {
	k := len(centroids)
	dim := len(vectors[0])
	counts := make([]int, k)
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}

	for i, vec := range vectors {
		c := labels[i]
		counts[c]++
		for j, v := range vec {
			sums[c][j] += v
		}
	}

	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
		centroids[c] = sums[c]
	}

	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, vec := range vectors {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := squaredEuclidean(vec, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		centroids[c] = clone(vectors[far])
	}
}

// Predict returns the index of the nearest centroid.
func Predict(query domain.Point, centroids []domain.Point) int {
	best, bestDist := 0, math.MaxFloat64
	for c, centroid := range centroids {
		if d := squaredEuclidean(query, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Sizes returns the number of points per label in [0, k).
func Sizes(labels []int, k int) []int {
	sizes := make([]int, k)
	for _, l := range labels {
		if l >= 0 && l < k {
			sizes[l]++
		}
	}
	return sizes
}

func nearest(vec []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.MaxFloat64
	for c, centroid := range centroids {
		if d := squaredEuclidean(vec, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

// squaredEuclidean computes squared Euclidean distance between two vectors.
func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
