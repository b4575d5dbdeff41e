package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// TestLevels_NestingPurity tests every fine cluster has exactly one mid label
func TestLevels_NestingPurity(t *testing.T) {
	points := blobs(11, 25, 1.2,
		domain.Point{0, 0}, domain.Point{8, 0}, domain.Point{0, 8}, domain.Point{8, 8})

	labels, err := Levels(context.Background(), NewKMeans(), points, 12, 4, settings())
	require.NoError(t, err)

	require.Len(t, labels.Fine, len(points))
	require.Len(t, labels.Mid, len(points))
	require.Len(t, labels.FineToMid, 12)

	midOfFine := make(map[int]int)
	for i := range points {
		f, m := labels.Fine[i], labels.Mid[i]
		assert.True(t, f >= 0 && f < 12)
		assert.True(t, m >= 0 && m < 4)
		if prev, ok := midOfFine[f]; ok {
			assert.Equal(t, prev, m, "fine cluster %d split across mid clusters", f)
		}
		midOfFine[f] = m
		assert.Equal(t, labels.FineToMid[f], m)
	}
}

// TestLevels_Deterministic tests both passes are reproducible
func TestLevels_Deterministic(t *testing.T) {
	points := blobs(5, 30, 1.0, domain.Point{0, 0}, domain.Point{4, 4}, domain.Point{9, 1})

	a, err := Levels(context.Background(), NewKMeans(), points, 8, 3, settings())
	require.NoError(t, err)
	b, err := Levels(context.Background(), NewKMeans(), points, 8, 3, settings())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// TestLevels_TooManyMid tests the mid pass cannot exceed the fine count
func TestLevels_TooManyMid(t *testing.T) {
	points := blobs(1, 10, 1.0, domain.Point{0, 0})

	_, err := Levels(context.Background(), NewKMeans(), points, 3, 4, settings())
	assert.ErrorIs(t, err, domain.ErrTooManyClusters)

	_, err = Levels(context.Background(), NewKMeans(), points, 4, 4, settings())
	assert.ErrorIs(t, err, domain.ErrTooManyClusters, "mid must stay below fine")

	_, err = Levels(context.Background(), NewKMeans(), points, 11, 2, settings())
	assert.ErrorIs(t, err, domain.ErrTooManyClusters)
}
