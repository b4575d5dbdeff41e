// Package quality rates partition clusters against the density clusterer.
package quality

import (
	"fmt"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Assess rates every fine cluster. For the points S of fine cluster k, the
// noise ratio is the share of S the density clusterer marked as noise and the
// subcluster count is the number of distinct density clusters inside S.
// An empty fine cluster is rated low with a zero noise ratio.
func Assess(fine, density []int, nFine int, settings domain.QualitySettings) ([]domain.ClusterQuality, error) {
	if len(fine) != len(density) {
		return nil, fmt.Errorf("%w: %d fine labels, %d density labels", domain.ErrLengthMismatch, len(fine), len(density))
	}

	members := domain.Members(fine, nFine)
	out := make([]domain.ClusterQuality, nFine)
	for k, idx := range members {
		if len(idx) == 0 {
			out[k] = domain.ClusterQuality{Tier: domain.QualityLow, Score: settings.LowScore}
			continue
		}

		noise := 0
		subclusters := make(map[int]struct{})
		for _, i := range idx {
			if density[i] == domain.Noise {
				noise++
				continue
			}
			subclusters[density[i]] = struct{}{}
		}

		ratio := float64(noise) / float64(len(idx))
		tier, score := settings.Rate(ratio, len(subclusters))
		out[k] = domain.ClusterQuality{
			Tier:        tier,
			Score:       score,
			NoiseRatio:  ratio,
			Subclusters: len(subclusters),
			Size:        len(idx),
		}
	}
	return out, nil
}

// NestingPurity maps every density cluster onto the partition clusters and
// returns, per density label, the fraction of its points that fall inside
// its majority partition cluster. Noise is skipped.
func NestingPurity(density, partition []int) map[int]float64 {
	counts := make(map[int]map[int]int)
	totals := make(map[int]int)
	for i, d := range density {
		if d == domain.Noise {
			continue
		}
		if counts[d] == nil {
			counts[d] = make(map[int]int)
		}
		counts[d][partition[i]]++
		totals[d]++
	}

	out := make(map[int]float64, len(counts))
	for d, byPartition := range counts {
		best := 0
		for _, c := range byPartition {
			best = max(best, c)
		}
		out[d] = float64(best) / float64(totals[d])
	}
	return out
}
