package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

func TestServer_handleListClusters(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &mockResultService{result: testResult()}, "")

	t.Run("mid clusters by default", func(t *testing.T) {
		_, output, err := server.handleListClusters(ctx, nil, ListClustersInput{})
		require.NoError(t, err)
		require.Equal(t, 2, output.Count)
		assert.Equal(t, "Autonomous vehicle injuries", output.Clusters[0].Name)
		assert.Equal(t, "Tort", output.Clusters[0].Category)
		assert.Equal(t, 2, output.Clusters[0].Children)
		assert.Nil(t, output.Clusters[0].MidID)
	})

	t.Run("fine clusters", func(t *testing.T) {
		_, output, err := server.handleListClusters(ctx, nil, ListClustersInput{Level: "fine"})
		require.NoError(t, err)
		require.Equal(t, 3, output.Count)
		assert.Equal(t, "low", output.Clusters[1].Tier)
		require.NotNil(t, output.Clusters[2].MidID)
		assert.Equal(t, 1, *output.Clusters[2].MidID)
		assert.Equal(t, "IP Law", output.Clusters[2].Category)
	})

	t.Run("fine clusters of one mid cluster", func(t *testing.T) {
		mid := 0
		_, output, err := server.handleListClusters(ctx, nil, ListClustersInput{Level: "FINE", MidID: &mid})
		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, _, err := server.handleListClusters(ctx, nil, ListClustersInput{Level: "top"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("result without hierarchy", func(t *testing.T) {
		bare := newTestServer(t, &mockResultService{result: &domain.Result{}}, "")
		_, _, err := bare.handleListClusters(ctx, nil, ListClustersInput{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("load failure", func(t *testing.T) {
		failing := newTestServer(t, &mockResultService{err: errors.New("disk gone")}, "")
		_, _, err := failing.handleListClusters(ctx, nil, ListClustersInput{})
		assert.ErrorContains(t, err, "disk gone")
	})
}

func TestServer_handleGetCluster(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &mockResultService{result: testResult()}, "")

	t.Run("mid cluster", func(t *testing.T) {
		_, detail, err := server.handleGetCluster(ctx, nil, GetClusterInput{ID: 0})
		require.NoError(t, err)
		assert.Equal(t, "mid", detail.Cluster.Level)
		require.NotNil(t, detail.Classification)
		assert.InDelta(t, 0.8, detail.Classification.Confidence, 1e-9)
		assert.Len(t, detail.Children, 2)
		assert.Equal(t, 3, detail.TotalDocuments)
		assert.Len(t, detail.Documents, 3)
	})

	t.Run("fine cluster with limit", func(t *testing.T) {
		_, detail, err := server.handleGetCluster(ctx, nil, GetClusterInput{Level: "fine", ID: 0, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, "Crash liability", detail.Cluster.Name)
		assert.Empty(t, detail.Children)
		assert.Equal(t, 2, detail.TotalDocuments)
		require.Len(t, detail.Documents, 1)
		assert.Equal(t, "a", detail.Documents[0].ID)
	})

	t.Run("unknown cluster", func(t *testing.T) {
		_, _, err := server.handleGetCluster(ctx, nil, GetClusterInput{Level: "fine", ID: 9})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &mockResultService{result: testResult()}, "")

	_, output, err := server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "d"})
	require.NoError(t, err)
	assert.Equal(t, 3, output.Document.Index)
	assert.Equal(t, "IP Law", output.Document.CategoryName)

	_, _, err = server.handleGetDocument(ctx, nil, GetDocumentInput{ID: "zzz"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPreview(t *testing.T) {
	short := "brief"
	assert.Equal(t, short, preview(short))

	long := make([]rune, summaryPreviewLen+10)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(preview(string(long)))
	assert.Len(t, got, summaryPreviewLen+3)
}
