package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// TestSilhouette_Separated tests well separated groups score near one
func TestSilhouette_Separated(t *testing.T) {
	points := []domain.Point{{0, 0}, {0, 1}, {100, 0}, {100, 1}}

	s, err := Silhouette(points, []int{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.99, s, 0.01)

	bad, err := Silhouette(points, []int{0, 1, 0, 1})
	require.NoError(t, err)
	assert.Less(t, bad, 0.0)
}

// TestSilhouette_NotComputable tests degenerate labelings
func TestSilhouette_NotComputable(t *testing.T) {
	points := []domain.Point{{0, 0}, {1, 1}, {2, 2}}

	_, err := Silhouette(points, []int{0, 0, 0})
	assert.ErrorIs(t, err, domain.ErrNotComputable)

	_, err = Silhouette(points, []int{noise, noise, noise})
	assert.ErrorIs(t, err, domain.ErrNotComputable)

	_, err = Silhouette(points, []int{0, 1, 2})
	assert.ErrorIs(t, err, domain.ErrNotComputable)

	assert.Nil(t, SilhouettePtr(points, []int{0, 0, 0}))
}

// TestSilhouette_SkipsNoise tests noise points do not count
func TestSilhouette_SkipsNoise(t *testing.T) {
	points := []domain.Point{{0, 0}, {0, 1}, {100, 0}, {100, 1}, {50, 50}}

	withNoise, err := Silhouette(points, []int{0, 0, 1, 1, noise})
	require.NoError(t, err)
	without, err := Silhouette(points[:4], []int{0, 0, 1, 1})
	require.NoError(t, err)

	assert.InDelta(t, without, withNoise, 1e-12)
}

// TestSilhouette_LengthMismatch tests misaligned input
func TestSilhouette_LengthMismatch(t *testing.T) {
	_, err := Silhouette([]domain.Point{{0, 0}}, []int{0, 1})
	assert.ErrorIs(t, err, domain.ErrLengthMismatch)
}
