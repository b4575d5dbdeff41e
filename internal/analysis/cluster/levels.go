package cluster

import (
	"context"
	"fmt"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Levels runs both partition passes. The fine pass clusters the points; the
// mid pass clusters the fine centroids, and every point inherits the mid
// label of its fine cluster. Fine clusters therefore nest purely inside mid
// clusters by construction.
func Levels(
	ctx context.Context,
	p driven.Partitioner,
	points []domain.Point,
	nFine, nMid int,
	settings domain.PartitionSettings,
) (*domain.Labels, error) {
	if nMid >= nFine {
		return nil, fmt.Errorf("%w: %d mid clusters for %d fine clusters", domain.ErrTooManyClusters, nMid, nFine)
	}

	fine, err := p.Partition(ctx, points, nFine, settings)
	if err != nil {
		return nil, fmt.Errorf("fine pass: %w", err)
	}

	mid, err := p.Partition(ctx, fine.Centroids, nMid, settings)
	if err != nil {
		return nil, fmt.Errorf("mid pass: %w", err)
	}

	midLabels := make([]int, len(points))
	for i, f := range fine.Labels {
		midLabels[i] = mid.Labels[f]
	}

	return &domain.Labels{
		Fine:          fine.Labels,
		Mid:           midLabels,
		FineToMid:     mid.Labels,
		FineCentroids: fine.Centroids,
		NFine:         nFine,
		NMid:          nMid,
	}, nil
}
