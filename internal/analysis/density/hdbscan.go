// Package density provides the HDBSCAN-style density clusterer used as an
// independent quality signal for the partition clusters.
package density

import (
	"context"
	"math"
	"sort"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.DensityClusterer = (*HDBSCAN)(nil)

// HDBSCAN clusters points by mutual-reachability density. It has no random
// state: equal inputs give equal labels.
type HDBSCAN struct{}

// NewHDBSCAN creates a new density clusterer.
func NewHDBSCAN() *HDBSCAN {
	return &HDBSCAN{}
}

// Cluster returns one label per point, domain.Noise for outliers. Cluster ids
// are numbered by the order in which the clusters appear in the condensed
// tree, starting at 0.
func (h *HDBSCAN) Cluster(ctx context.Context, points []domain.Point, settings domain.DensitySettings) ([]int, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = domain.Noise
	}
	if n < settings.MinClusterSize || n < 2 {
		return labels, nil
	}

	core := coreDistances(points, min(settings.MinSamples, n))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mst := primMST(points, core)
	tree := singleLinkage(mst, n)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	condensed := condense(tree, n, settings.MinClusterSize)
	selected := selectClusters(condensed, settings.Selection)

	return assignLabels(condensed, selected, n), nil
}

func distance(a, b domain.Point) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// coreDistances returns, for every point, the distance to its k-th nearest
// neighbour counting the point itself as the first.
func coreDistances(points []domain.Point, k int) []float64 {
	n := len(points)
	core := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row[j] = distance(points[i], points[j])
		}
		sorted := append([]float64(nil), row...)
		sort.Float64s(sorted)
		core[i] = sorted[k-1]
	}
	return core
}

// mstEdge is an edge of the minimum spanning tree.
type mstEdge struct {
	a, b   int
	weight float64
}

// primMST builds the minimum spanning tree of the complete mutual
// reachability graph. Ties are resolved by the lowest point index.
func primMST(points []domain.Point, core []float64) []mstEdge {
	n := len(points)
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		next, nextWeight := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			mr := math.Max(distance(points[current], points[j]), math.Max(core[current], core[j]))
			if mr < best[j] {
				best[j] = mr
				from[j] = current
			}
			if best[j] < nextWeight {
				next, nextWeight = j, best[j]
			}
		}
		inTree[next] = true
		edges = append(edges, mstEdge{a: from[next], b: next, weight: nextWeight})
		current = next
	}

	sort.SliceStable(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })
	return edges
}
