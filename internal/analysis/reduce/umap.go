package reduce

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

const (
	spread             = 1.0
	learningRate       = 1.0
	negativeSampleRate = 5
	gradientClip       = 4.0
	initJitter         = 1e-4
)

// Verify interface compliance.
var _ driven.Reducer = (*UMAP)(nil)

// UMAP is the manifold-learning reducer.
type UMAP struct{}

// NewUMAP creates a new reducer.
func NewUMAP() *UMAP {
	return &UMAP{}
}

// Reduce projects vectors into settings.Components dimensions.
func (u *UMAP) Reduce(ctx context.Context, vectors [][]float64, settings domain.ReducerSettings) ([]domain.Point, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	n := len(vectors)
	if n < settings.Neighbors {
		return nil, fmt.Errorf("%w: %d points for %d neighbors", domain.ErrTooFewPoints, n, settings.Neighbors)
	}
	dim := len(vectors[0])
	for i, row := range vectors {
		if len(row) != dim {
			return nil, &domain.InputError{Field: "embedding", Index: i, Err: domain.ErrLengthMismatch}
		}
		for _, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, &domain.InputError{Field: "embedding", Index: i, Err: domain.ErrNonFinite}
			}
		}
	}

	rng := rand.New(rand.NewSource(settings.Seed))

	nb := exactKNN(vectors, settings.Neighbors, metricFunc(settings.Metric))
	sigmas, rhos := smoothKNNDist(nb, settings.Neighbors)
	edges := fuzzyGraph(nb, sigmas, rhos)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layout, err := pcaLayout(vectors, settings.Components)
	if err != nil {
		return nil, fmt.Errorf("initial layout: %w", err)
	}
	for _, row := range layout {
		for c := range row {
			row[c] += rng.NormFloat64() * initJitter
		}
	}

	a, b := fitAB(spread, settings.MinDist)
	if err := optimizeLayout(ctx, layout, edges, settings.Epochs, a, b, rng); err != nil {
		return nil, err
	}

	points := make([]domain.Point, n)
	for i, row := range layout {
		points[i] = domain.Point(row)
	}
	return points, nil
}

// optimizeLayout runs the attraction/repulsion SGD. Edges are sampled in
// proportion to their weight; weak edges that would be sampled less than
// once are dropped.
func optimizeLayout(
	ctx context.Context,
	layout [][]float64,
	edges []edge,
	epochs int,
	a, b float64,
	rng *rand.Rand,
) error {
	var maxWeight float64
	for _, e := range edges {
		maxWeight = math.Max(maxWeight, e.weight)
	}
	if maxWeight == 0 {
		return nil
	}

	kept := edges[:0:0]
	for _, e := range edges {
		if e.weight >= maxWeight/float64(epochs) {
			kept = append(kept, e)
		}
	}

	epochsPerSample := make([]float64, len(kept))
	nextSample := make([]float64, len(kept))
	epochsPerNegative := make([]float64, len(kept))
	nextNegative := make([]float64, len(kept))
	for i, e := range kept {
		epochsPerSample[i] = maxWeight / e.weight
		nextSample[i] = epochsPerSample[i]
		epochsPerNegative[i] = epochsPerSample[i] / negativeSampleRate
		nextNegative[i] = epochsPerNegative[i]
	}

	n := len(layout)
	dim := len(layout[0])
	diff := make([]float64, dim)

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		alpha := learningRate * (1 - float64(epoch)/float64(epochs))
		ep := float64(epoch)

		for i, e := range kept {
			if nextSample[i] > ep {
				continue
			}
			head, tail := layout[e.head], layout[e.tail]

			d2 := sqDist(head, tail, diff)
			var coeff float64
			if d2 > 0 {
				coeff = -2 * a * b * math.Pow(d2, b-1) / (1 + a*math.Pow(d2, b))
			}
			for c := 0; c < dim; c++ {
				g := clip(coeff*diff[c]) * alpha
				head[c] += g
				tail[c] -= g
			}
			nextSample[i] += epochsPerSample[i]

			negatives := int((ep - nextNegative[i]) / epochsPerNegative[i])
			for s := 0; s < negatives; s++ {
				k := rng.Intn(n)
				if k == e.head {
					continue
				}
				other := layout[k]
				d2 := sqDist(head, other, diff)
				for c := 0; c < dim; c++ {
					var g float64
					if d2 > 0 {
						coeff := 2 * b / ((0.001 + d2) * (1 + a*math.Pow(d2, b)))
						g = clip(coeff * diff[c])
					} else {
						g = gradientClip
					}
					head[c] += g * alpha
				}
			}
			nextNegative[i] += float64(negatives) * epochsPerNegative[i]
		}
	}
	return nil
}

// sqDist writes a - b into diff and returns the squared length.
func sqDist(a, b, diff []float64) float64 {
	var sum float64
	for c := range a {
		diff[c] = a[c] - b[c]
		sum += diff[c] * diff[c]
	}
	return sum
}

func clip(v float64) float64 {
	return math.Max(-gradientClip, math.Min(gradientClip, v))
}
