package reduce

import (
	"math"
	"sort"
)

const (
	smoothIterations = 64
	smoothTolerance  = 1e-5
	minKDistScale    = 1e-3
)

// edge is one weighted link of the fuzzy graph.
type edge struct {
	head, tail int
	weight     float64
}

// smoothKNNDist finds per-row rho (distance to the nearest neighbour) and
// sigma such that the memberships of a row sum to log2(k).
func smoothKNNDist(nb neighbours, k int) (sigmas, rhos []float64) {
	n := len(nb.distances)
	target := math.Log2(float64(k))
	sigmas = make([]float64, n)
	rhos = make([]float64, n)

	var meanAll float64
	for i := range nb.distances {
		for _, d := range nb.distances[i] {
			meanAll += d
		}
	}
	meanAll /= float64(n * k)

	for i := 0; i < n; i++ {
		dists := nb.distances[i]
		for _, d := range dists {
			if d > 0 {
				rhos[i] = d
				break
			}
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < smoothIterations; iter++ {
			var psum float64
			for j := 1; j < len(dists); j++ {
				d := dists[j] - rhos[i]
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum += 1
				}
			}
			if math.Abs(psum-target) < smoothTolerance {
				break
			}
			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}

		var meanRow float64
		for _, d := range dists {
			meanRow += d
		}
		meanRow /= float64(len(dists))
		if rhos[i] > 0 {
			mid = math.Max(mid, minKDistScale*meanRow)
		} else {
			mid = math.Max(mid, minKDistScale*meanAll)
		}
		sigmas[i] = mid
	}
	return sigmas, rhos
}

// fuzzyGraph builds the symmetric membership graph w = a + b - a*b and
// returns its edges sorted by (head, tail).
func fuzzyGraph(nb neighbours, sigmas, rhos []float64) []edge {
	n := len(nb.indices)
	directed := make(map[[2]int]float64)
	for i := 0; i < n; i++ {
		for j, idx := range nb.indices[i] {
			if idx == i {
				continue
			}
			var w float64
			if d := nb.distances[i][j] - rhos[i]; d <= 0 || sigmas[i] == 0 {
				w = 1
			} else {
				w = math.Exp(-d / sigmas[i])
			}
			directed[[2]int{i, idx}] = w
		}
	}

	sym := make(map[[2]int]float64, len(directed))
	for key, w := range directed {
		back := directed[[2]int{key[1], key[0]}]
		combined := w + back - w*back
		sym[key] = combined
		sym[[2]int{key[1], key[0]}] = combined
	}

	edges := make([]edge, 0, len(sym))
	for key, w := range sym {
		if w > 0 {
			edges = append(edges, edge{head: key[0], tail: key[1], weight: w})
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].head != edges[b].head {
			return edges[a].head < edges[b].head
		}
		return edges[a].tail < edges[b].tail
	})
	return edges
}
