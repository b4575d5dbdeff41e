package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

const noise = domain.Noise

// TestAssess tests noise ratios, subcluster counts and tiers per fine cluster
func TestAssess(t *testing.T) {
	fine := []int{0, 0, 0, 0, 1, 1, 1, 1, 2, 2}
	density := []int{
		0, 0, 1, noise, // one noise of four, two subclusters
		noise, noise, noise, 2, // three of four are noise
		noise, noise, // all noise
	}

	q, err := Assess(fine, density, 4, domain.DefaultQualitySettings())
	require.NoError(t, err)
	require.Len(t, q, 4)

	assert.Equal(t, domain.ClusterQuality{Tier: domain.QualityHigh, Score: 1.0, NoiseRatio: 0.25, Subclusters: 2, Size: 4}, q[0])
	assert.Equal(t, domain.QualityLow, q[1].Tier)
	assert.InDelta(t, 0.75, q[1].NoiseRatio, 1e-12)
	assert.Equal(t, 1, q[1].Subclusters)
	assert.Equal(t, domain.QualityLow, q[2].Tier)
	assert.InDelta(t, 1.0, q[2].NoiseRatio, 1e-12)

	// Fine cluster 3 has no points.
	assert.Equal(t, domain.ClusterQuality{Tier: domain.QualityLow, Score: 0.2}, q[3])
}

// TestAssess_LengthMismatch tests misaligned labels are rejected
func TestAssess_LengthMismatch(t *testing.T) {
	_, err := Assess([]int{0, 1}, []int{0}, 2, domain.DefaultQualitySettings())
	assert.ErrorIs(t, err, domain.ErrLengthMismatch)
}

// TestAssess_Medium tests a partly noisy cluster
func TestAssess_Medium(t *testing.T) {
	fine := make([]int, 10)
	density := []int{noise, noise, noise, noise, 0, 0, 0, 0, 0, 0}

	q, err := Assess(fine, density, 1, domain.DefaultQualitySettings())
	require.NoError(t, err)

	assert.Equal(t, domain.QualityMedium, q[0].Tier)
	assert.InDelta(t, 0.5, q[0].Score, 1e-12)
	assert.InDelta(t, 0.4, q[0].NoiseRatio, 1e-12)
}

// TestNestingPurity tests majority fractions per density cluster
func TestNestingPurity(t *testing.T) {
	density := []int{0, 0, 0, 0, 1, 1, noise, noise}
	fine := []int{0, 0, 0, 1, 2, 2, 0, 1}

	purity := NestingPurity(density, fine)

	assert.Len(t, purity, 2)
	assert.InDelta(t, 0.75, purity[0], 1e-12)
	assert.InDelta(t, 1.0, purity[1], 1e-12)
}
