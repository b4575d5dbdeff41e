package driven

import (
	"context"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Reducer projects high-dimensional embeddings into a low-dimensional space
// while preserving local neighbourhoods.
type Reducer interface {
	// Reduce returns one point per input row, index-aligned.
	// Returns domain.ErrTooFewPoints if there are fewer rows than neighbours.
	Reduce(ctx context.Context, vectors [][]float64, settings domain.ReducerSettings) ([]domain.Point, error)
}

// Partition is the output of a partition clusterer.
type Partition struct {
	// Labels holds one label in [0, K) per point.
	Labels []int

	// Centroids holds the K cluster centres.
	Centroids []domain.Point

	// Inertia is the within-cluster sum of squared distances.
	Inertia float64
}

// Partitioner splits points into exactly K clusters.
type Partitioner interface {
	// Partition clusters the points into k groups.
	// Returns domain.ErrTooManyClusters if k exceeds the number of points.
	Partition(ctx context.Context, points []domain.Point, k int, settings domain.PartitionSettings) (*Partition, error)
}

// DensityClusterer finds variable-density clusters and marks outliers as
// domain.Noise.
type DensityClusterer interface {
	// Cluster returns one label per point.
	Cluster(ctx context.Context, points []domain.Point, settings domain.DensitySettings) ([]int, error)
}
