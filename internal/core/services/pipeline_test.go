package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/casemap/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/casemap/internal/analysis/cluster"
	"github.com/custodia-labs/casemap/internal/analysis/density"
	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

const testOutput = "result.json"

// identityReducer returns the embeddings unchanged, so the tests control the
// geometry seen by the clusterers.
type identityReducer struct{}

func (identityReducer) Reduce(_ context.Context, vectors [][]float64, _ domain.ReducerSettings) ([]domain.Point, error) {
	out := make([]domain.Point, len(vectors))
	for i, v := range vectors {
		out[i] = append(domain.Point(nil), v...)
	}
	return out, nil
}

// blobCorpus returns three tight 2D blobs of 30 points and 10 scattered
// outliers (indices 90-99).
func blobCorpus() []domain.Document {
	rng := rand.New(rand.NewSource(1))
	centres := [][2]float64{{0, 0}, {20, 0}, {0, 20}}

	var docs []domain.Document
	for b, c := range centres {
		for i := 0; i < 30; i++ {
			docs = append(docs, domain.Document{
				ID:      fmt.Sprintf("blob%d-%02d", b, i),
				Summary: fmt.Sprintf("case %d of topic %d", i, b),
				Embedding: []float32{
					float32(c[0] + rng.Float64() - 0.5),
					float32(c[1] + rng.Float64() - 0.5),
				},
			})
		}
	}

	outliers := [][2]float64{
		{10, -9}, {31, 9}, {-9, 10}, {9, 31}, {-11, -11},
		{32, -11}, {-11, 32}, {12, 12}, {27, 27}, {-6, -22},
	}
	for i, o := range outliers {
		docs = append(docs, domain.Document{
			ID:        fmt.Sprintf("outlier-%d", i),
			Summary:   "unrelated matter",
			Embedding: []float32{float32(o[0]), float32(o[1])},
		})
	}
	return docs
}

func blobSettings() domain.PipelineSettings {
	s := domain.DefaultPipelineSettings()
	s.Partition.Fine = 3
	s.Partition.Mid = 2
	s.Density.MinClusterSize = 5
	s.Density.MinSamples = 5
	s.Annotator = testAnnotatorSettings()
	return s
}

type pipelineFixture struct {
	service *PipelineService
	results *memory.ResultStore
	runs    *memory.RunStore
	mock    *mockAnnotator
}

func newPipelineFixture(docs []domain.Document) *pipelineFixture {
	f := &pipelineFixture{
		results: memory.NewResultStore(),
		runs:    memory.NewRunStore(),
		mock:    newMockAnnotator(),
	}
	annotation, _ := newTestAnnotation(f.mock)
	f.service = NewPipelineService(
		memory.NewEmbeddingStore(docs...),
		f.results,
		f.runs,
		identityReducer{},
		cluster.NewKMeans(),
		density.NewHDBSCAN(),
		nil,
		annotation,
	)
	return f
}

// withAnnotator swaps the annotator while keeping the stores.
func (f *pipelineFixture) withAnnotator(mock *mockAnnotator) {
	annotation, _ := newTestAnnotation(mock)
	f.service.annotation = annotation
	f.mock = mock
}

func TestPipelineService_Run_ThreeBlobs(t *testing.T) {
	docs := blobCorpus()
	f := newPipelineFixture(docs)

	result, err := f.service.Run(context.Background(), driving.RunRequest{
		OutputPath: testOutput,
		Settings:   blobSettings(),
	})
	require.NoError(t, err)

	require.Len(t, result.Documents, len(docs))
	assert.Equal(t, 3, result.Meta.NFine)
	assert.Equal(t, 2, result.Meta.NMid)
	assert.Equal(t, len(docs), result.Meta.TotalDocuments)
	assert.Empty(t, result.Meta.Failures)
	assert.False(t, result.Meta.Partial)

	midOfFine := make(map[int]int)
	for i, d := range result.Documents {
		assert.Equal(t, i, d.Index)
		assert.Equal(t, docs[i].ID, d.ID)
		assert.NotEqual(t, domain.Noise, d.FineCluster)
		assert.NotEqual(t, domain.Noise, d.MidCluster)
		assert.NotEmpty(t, d.FineClusterName)
		assert.NotEmpty(t, d.MidClusterName)

		// Every fine cluster nests in exactly one mid cluster.
		if m, ok := midOfFine[d.FineCluster]; ok {
			assert.Equal(t, m, d.MidCluster)
		}
		midOfFine[d.FineCluster] = d.MidCluster
	}

	// Each blob forms one fine cluster and is never rated low.
	for b := 0; b < 3; b++ {
		fine := result.Documents[b*30].FineCluster
		for i := b * 30; i < (b+1)*30; i++ {
			assert.Equal(t, fine, result.Documents[i].FineCluster)
			assert.False(t, result.Documents[i].IsDensityNoise, "blob point %d marked noise", i)
		}
		fc, _, ok := result.Meta.Hierarchy.FineByID(fine)
		require.True(t, ok)
		assert.NotEqual(t, domain.QualityLow, fc.Quality.Tier)
		assert.Less(t, fc.Quality.NoiseRatio, 0.3)
	}
	// Only scattered outliers can be noise. Some of them may still fall out of
	// a blob's cluster after its birth and count as members.
	noise := 0
	for i := 90; i < 100; i++ {
		if result.Documents[i].IsDensityNoise {
			noise++
		}
	}
	assert.Positive(t, noise)
	assert.Equal(t, 3, result.Meta.Density.Clusters)
	assert.Equal(t, noise, result.Meta.Density.NoisePoints)
	require.NotNil(t, result.Meta.Silhouettes.Fine)
	assert.Greater(t, *result.Meta.Silhouettes.Fine, 0.5)

	// Names and categories come from the annotator.
	for id, name := range result.Meta.MidNames {
		assert.Equal(t, fmt.Sprintf("Mid mid/%d: Tort", id), name)
		assert.Equal(t, "Tort", result.Meta.MidCategories[id])
	}

	saved, err := f.results.Load(context.Background(), testOutput)
	require.NoError(t, err)
	assert.Equal(t, result.Meta.RunID, saved.Meta.RunID)

	runs, err := f.runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunCompleted, runs[0].Status)
	assert.Equal(t, result.Meta.RunID, runs[0].ID)
	assert.Equal(t, len(docs), runs[0].Documents)
	assert.Equal(t, noise, runs[0].NoisePoints)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Contains(t, runs[0].Settings, "Reducer")
}

func TestPipelineService_Run_Deterministic(t *testing.T) {
	docs := blobCorpus()
	settings := blobSettings()
	settings.Annotator.DryRun = true

	first, err := newPipelineFixture(docs).service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)
	second, err := newPipelineFixture(docs).service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)

	for i := range first.Documents {
		assert.Equal(t, first.Documents[i].FineCluster, second.Documents[i].FineCluster)
		assert.Equal(t, first.Documents[i].MidCluster, second.Documents[i].MidCluster)
		assert.Equal(t, first.Documents[i].DensityCluster, second.Documents[i].DensityCluster)
	}
	assert.Equal(t, first.Meta.Fingerprint, second.Meta.Fingerprint)
}

func TestPipelineService_Run_AnnotatorFailureKeepsFallbacks(t *testing.T) {
	f := newPipelineFixture(blobCorpus())
	f.mock.classify = func([]string) (*domain.Classification, error) {
		return nil, errors.New("quota exceeded")
	}
	f.mock.name = func(domain.NameContext, int) (string, error) {
		return "", errors.New("quota exceeded")
	}

	result, err := f.service.Run(context.Background(), driving.RunRequest{
		OutputPath: testOutput,
		Settings:   blobSettings(),
	})
	require.NoError(t, err)

	for _, d := range result.Documents {
		assert.Equal(t, domain.FallbackName(d.FineCluster), d.FineClusterName)
		assert.Equal(t, domain.FallbackName(d.MidCluster), d.MidClusterName)
		assert.Equal(t, "Unrelated", d.CategoryName)
	}
	// Two operations per mid cluster, one per fine cluster.
	assert.Len(t, result.Meta.Failures, 2*2+3)

	runs, err := f.runs.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, runs[0].Status)
	assert.Equal(t, 7, runs[0].Failures)
}

func TestPipelineService_Run_ResumeSkipsAnnotatedClusters(t *testing.T) {
	f := newPipelineFixture(blobCorpus())
	settings := blobSettings()

	// The first run fails to name one fine cluster.
	f.mock.name = func(nc domain.NameContext, _ int) (string, error) {
		if nc.Level == domain.LevelFine && nc.ClusterID == 1 {
			return "", errors.New("refused")
		}
		return fmt.Sprintf("first %s %d", nc.Level, nc.ClusterID), nil
	}
	first, err := f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)
	require.Len(t, first.Meta.Failures, 1)

	// Checkpoints were written while annotating.
	assert.Greater(t, f.results.Saves(), 1)

	second := newMockAnnotator()
	f.withAnnotator(second)
	result, err := f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)

	assert.Zero(t, second.count("classify"))
	assert.Zero(t, second.count("mid/0"))
	assert.Zero(t, second.count("fine/0"))
	assert.Equal(t, 1, second.count("fine/1"))

	assert.Equal(t, "first fine 0", result.Meta.FineNames[0])
	assert.Equal(t, "Fine fine/1", result.Meta.FineNames[1])
	assert.Equal(t, first.Meta.MidNames, result.Meta.MidNames)
	assert.Empty(t, result.Meta.Failures)
}

func TestPipelineService_Run_ResumeIgnoresOtherSettings(t *testing.T) {
	f := newPipelineFixture(blobCorpus())
	settings := blobSettings()
	_, err := f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)

	second := newMockAnnotator()
	f.withAnnotator(second)
	settings.Partition.Seed = 7
	_, err = f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)

	assert.Equal(t, 2, second.count("classify"))
}

func TestPipelineService_Run_NonStrictNestingReportsPurity(t *testing.T) {
	f := newPipelineFixture(blobCorpus())
	settings := blobSettings()
	settings.Quality.StrictNesting = false

	result, err := f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	require.NoError(t, err)

	assert.False(t, result.Meta.StrictNesting)
	require.NotNil(t, result.Documents[0].NestingPurity)
	assert.InDelta(t, 1.0, *result.Documents[0].NestingPurity, 1e-9)
	assert.Nil(t, result.Documents[95].NestingPurity)
}

func TestPipelineService_Run_InputErrors(t *testing.T) {
	missing := blobCorpus()
	missing[4].Embedding = nil

	duplicate := blobCorpus()
	duplicate[7].ID = duplicate[3].ID

	tests := []struct {
		name string
		docs []domain.Document
		want error
	}{
		{"empty corpus", nil, domain.ErrEmptyInput},
		{"missing embedding", missing, domain.ErrMissingEmbedding},
		{"duplicate id", duplicate, domain.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(tt.docs)

			_, err := f.service.Run(context.Background(), driving.RunRequest{
				OutputPath: testOutput,
				Settings:   blobSettings(),
			})
			require.ErrorIs(t, err, tt.want)

			assert.Zero(t, f.results.Saves())
			assert.Zero(t, f.mock.count("classify"))

			runs, err := f.runs.ListRuns(context.Background(), 0)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, domain.RunFailed, runs[0].Status)
			assert.NotEmpty(t, runs[0].Error)
		})
	}
}

func TestPipelineService_Run_InvalidSettings(t *testing.T) {
	f := newPipelineFixture(blobCorpus())
	settings := blobSettings()
	settings.Density.MinClusterSize = 1

	_, err := f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)

	_, err = f.service.Run(context.Background(), driving.RunRequest{Settings: blobSettings()})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipelineService_Run_TooManyClusters(t *testing.T) {
	f := newPipelineFixture(blobCorpus()[:20])
	settings := blobSettings()
	settings.Partition.Fine = 50
	settings.Partition.Mid = 10

	_, err := f.service.Run(context.Background(), driving.RunRequest{OutputPath: testOutput, Settings: settings})
	assert.ErrorIs(t, err, domain.ErrTooManyClusters)
}

func TestPipelineService_Run_Cancelled(t *testing.T) {
	f := newPipelineFixture(blobCorpus())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Run(ctx, driving.RunRequest{OutputPath: testOutput, Settings: blobSettings()})
	assert.ErrorIs(t, err, context.Canceled)

	runs, err := f.runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunFailed, runs[0].Status)
}

// gridCorpus returns n points spread around 50 centres on a 2D grid.
func gridCorpus(n int) []domain.Document {
	rng := rand.New(rand.NewSource(3))
	docs := make([]domain.Document, n)
	for i := range docs {
		c := i % 50
		docs[i] = domain.Document{
			ID:      fmt.Sprintf("case-%03d", i),
			Summary: fmt.Sprintf("matter %d", c),
			Embedding: []float32{
				float32(float64(c%10)*10 + rng.Float64()),
				float32(float64(c/10)*10 + rng.Float64()),
			},
		}
	}
	return docs
}

func TestPipelineService_Run_ConcurrentCheckpointsToFile(t *testing.T) {
	docs := gridCorpus(400)
	settings := blobSettings()
	settings.Partition.Fine = 50
	settings.Partition.Mid = 16
	settings.Annotator.Concurrency = 8
	settings.Annotator.Resume = true

	for i := 0; i < 5; i++ {
		t.Run(fmt.Sprintf("run %d", i), func(t *testing.T) {
			results := jsonfile.NewResultStore()
			annotation, _ := newTestAnnotation(newMockAnnotator())
			service := NewPipelineService(
				memory.NewEmbeddingStore(docs...),
				results,
				memory.NewRunStore(),
				identityReducer{},
				cluster.NewKMeans(),
				density.NewHDBSCAN(),
				nil,
				annotation,
			)
			output := filepath.Join(t.TempDir(), "out.json")

			result, err := service.Run(context.Background(), driving.RunRequest{OutputPath: output, Settings: settings})
			require.NoError(t, err)
			assert.Empty(t, result.Meta.Failures)

			saved, err := results.Load(context.Background(), output)
			require.NoError(t, err)
			assert.Len(t, saved.Meta.FineNames, 50)
			assert.Len(t, saved.Meta.MidNames, 16)
			assert.False(t, saved.Meta.Partial)

			matches, err := filepath.Glob(output + ".*.tmp")
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}
