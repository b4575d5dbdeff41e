package quality

import (
	"fmt"
	"math"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Silhouette returns the mean silhouette coefficient of the labelled points.
// Points labelled domain.Noise are left out. It returns
// domain.ErrNotComputable when fewer than two clusters, or no fewer
// clusters than points, remain.
func Silhouette(points []domain.Point, labels []int) (float64, error) {
	if len(points) != len(labels) {
		return 0, fmt.Errorf("%w: %d points, %d labels", domain.ErrLengthMismatch, len(points), len(labels))
	}

	var idx []int
	groups := make(map[int][]int)
	for i, l := range labels {
		if l == domain.Noise {
			continue
		}
		idx = append(idx, i)
		groups[l] = append(groups[l], i)
	}
	if len(groups) < 2 || len(groups) >= len(idx) {
		return 0, domain.ErrNotComputable
	}

	var total float64
	for _, i := range idx {
		own := labels[i]
		if len(groups[own]) == 1 {
			continue
		}

		var a float64
		b := math.Inf(1)
		for l, members := range groups {
			var sum float64
			for _, j := range members {
				sum += dist(points[i], points[j])
			}
			if l == own {
				a = sum / float64(len(members)-1)
			} else {
				b = math.Min(b, sum/float64(len(members)))
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(len(idx)), nil
}

// SilhouettePtr is Silhouette with "not computable" reported as nil.
func SilhouettePtr(points []domain.Point, labels []int) *float64 {
	s, err := Silhouette(points, labels)
	if err != nil {
		return nil
	}
	return &s
}

func dist(a, b domain.Point) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
