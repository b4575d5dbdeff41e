package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// mockResultService is a mock implementation of driving.ResultService.
type mockResultService struct {
	result   *domain.Result
	err      error
	loaded   []string
	latested int
}

func (m *mockResultService) Load(_ context.Context, path string) (*domain.Result, error) {
	m.loaded = append(m.loaded, path)
	return m.result, m.err
}

func (m *mockResultService) Latest(_ context.Context) (*domain.Result, error) {
	m.latested++
	return m.result, m.err
}

// testResult has two mid clusters: mid 0 (Tort) owns fine 0 and 1, mid 1
// (IP Law) owns fine 2.
func testResult() *domain.Result {
	tort := domain.Category{ID: 3, Name: "Tort"}
	ip := domain.Category{ID: 1, Name: "IP Law"}
	h := &domain.Hierarchy{Mid: []domain.MidCluster{
		{
			ID: 0, Name: "Autonomous vehicle injuries", Category: tort, Size: 3,
			Classification: &domain.Classification{Primary: "Tort", Categories: []string{"Tort"}, Confidence: 0.8},
			Fine: []domain.FineCluster{
				{ID: 0, MidID: 0, Name: "Crash liability", Size: 2, Quality: domain.ClusterQuality{Tier: domain.QualityHigh, Score: 1}},
				{ID: 1, MidID: 0, Name: "Sensor defects", Size: 1, Quality: domain.ClusterQuality{Tier: domain.QualityLow, Score: 0.2}},
			},
		},
		{
			ID: 1, Name: "Training data copyright", Category: ip, Size: 2,
			Fine: []domain.FineCluster{
				{ID: 2, MidID: 1, Name: "Scraping disputes", Size: 2, Quality: domain.ClusterQuality{Tier: domain.QualityMedium, Score: 0.5}},
			},
		},
	}}

	doc := func(i int, id string, fine, mid int, cat domain.Category) domain.ResultDocument {
		return domain.ResultDocument{
			Index: i, ID: id, DisplayName: id, Summary: "summary of " + id,
			FineCluster: fine, MidCluster: mid, CategoryID: cat.ID, CategoryName: cat.Name,
		}
	}
	return &domain.Result{
		Documents: []domain.ResultDocument{
			doc(0, "a", 0, 0, tort),
			doc(1, "b", 0, 0, tort),
			doc(2, "c", 1, 0, tort),
			doc(3, "d", 2, 1, ip),
			doc(4, "e", 2, 1, ip),
		},
		Meta: domain.ResultMeta{
			RunID:          "run-1",
			TotalDocuments: 5,
			NFine:          3,
			NMid:           2,
			Hierarchy:      h,
		},
	}
}

func newTestServer(t *testing.T, results *mockResultService, path string) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Results: results, ResultPath: path})
	require.NoError(t, err)
	return server
}
