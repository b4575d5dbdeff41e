package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestQualitySettings_Rate tests the tier table
func TestQualitySettings_Rate(t *testing.T) {
	tests := []struct {
		name        string
		noiseRatio  float64
		subclusters int
		wantTier    QualityTier
		wantScore   float64
	}{
		{"dense with subclusters", 0.1, 2, QualityHigh, 1.0},
		{"dense without subclusters", 0.1, 0, QualityMedium, 0.5},
		{"partly noisy", 0.45, 0, QualityMedium, 0.5},
		{"boundary at high threshold", 0.3, 3, QualityMedium, 0.5},
		{"boundary at medium threshold", 0.6, 1, QualityLow, 0.2},
		{"mostly noise", 0.9, 0, QualityLow, 0.2},
		{"no noise single subcluster", 0, 1, QualityHigh, 1.0},
	}

	q := DefaultQualitySettings()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, score := q.Rate(tt.noiseRatio, tt.subclusters)
			assert.Equal(t, tt.wantTier, tier)
			assert.InDelta(t, tt.wantScore, score, 1e-12)
		})
	}
}

// TestQualityTier_IsValid tests tier validation
func TestQualityTier_IsValid(t *testing.T) {
	for _, tier := range AllQualityTiers() {
		assert.True(t, tier.IsValid())
		assert.NotEqual(t, unknownDescription, tier.Description())
	}
	assert.False(t, QualityTier("excellent").IsValid())
	assert.Equal(t, unknownDescription, QualityTier("excellent").Description())
}
