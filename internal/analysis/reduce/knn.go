package reduce

import (
	"math"
	"sort"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// distanceFunc measures two rows in embedding space.
type distanceFunc func(a, b []float64) float64

func metricFunc(m domain.Metric) distanceFunc {
	switch m {
	case domain.MetricCosine:
		return cosineDistance
	case domain.MetricManhattan:
		return manhattanDistance
	default:
		return euclideanDistance
	}
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func manhattanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// cosineDistance is 1 - cosine similarity, in [0, 2]. Zero vectors are at
// distance 1 from everything.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - math.Max(-1, math.Min(1, sim))
}

// neighbours holds the k nearest rows of every row, self included first.
type neighbours struct {
	indices   [][]int
	distances [][]float64
}

// exactKNN computes the k nearest neighbours by brute force. Ties are broken
// by index so the graph does not depend on sort stability.
func exactKNN(data [][]float64, k int, dist distanceFunc) neighbours {
	n := len(data)
	nb := neighbours{
		indices:   make([][]int, n),
		distances: make([][]float64, n),
	}

	type cand struct {
		idx int
		d   float64
	}
	row := make([]cand, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				row[j] = cand{j, 0}
				continue
			}
			row[j] = cand{j, dist(data[i], data[j])}
		}
		sort.Slice(row, func(a, b int) bool {
			// Self always comes first.
			if row[a].idx == i {
				return true
			}
			if row[b].idx == i {
				return false
			}
			if row[a].d != row[b].d {
				return row[a].d < row[b].d
			}
			return row[a].idx < row[b].idx
		})

		nb.indices[i] = make([]int, k)
		nb.distances[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			nb.indices[i][j] = row[j].idx
			nb.distances[i][j] = row[j].d
		}
	}
	return nb
}
