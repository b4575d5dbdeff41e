package jsonfile

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEmbeddingStore_LoadArray(t *testing.T) {
	path := writeFile(t, "corpus.json", `[
		{"id": "a.pdf", "name": "A", "summary": "first", "embedding": [1, 2]},
		{"name": "B", "summary": "second", "embedding": [3, 4]},
		{"summary": "third", "embedding": [5, 6]}
	]`)

	corpus, err := NewEmbeddingStore(path).Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, corpus.Len())
	assert.Equal(t, "a.pdf", corpus.Documents[0].ID)
	assert.Equal(t, "B", corpus.Documents[1].ID, "id falls back to name")
	assert.Equal(t, "2", corpus.Documents[2].ID, "id falls back to position")
	assert.Equal(t, []float32{3, 4}, corpus.Documents[1].Embedding)
	assert.Equal(t, "second", corpus.Documents[1].Summary)
}

func TestEmbeddingStore_LoadWrapped(t *testing.T) {
	path := writeFile(t, "corpus.json", `{"documents": [{"id": "x", "summary": "s"}]}`)

	corpus, err := NewEmbeddingStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, corpus.Len())
	assert.Nil(t, corpus.Documents[0].Embedding)
}

func TestEmbeddingStore_LoadErrors(t *testing.T) {
	_, err := NewEmbeddingStore(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	path := writeFile(t, "bad.json", `[{"embedding": "nope"}]`)
	_, err = NewEmbeddingStore(path).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var inputErr *domain.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestEmbeddingStore_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "corpus.json")
	store := NewEmbeddingStore(path)

	in := &domain.Corpus{Documents: []domain.Document{
		{ID: "a", Name: "A", Summary: "s", Embedding: []float32{0.5, -1}},
	}}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.Documents, out.Documents)
	assert.Equal(t, path, store.Location())

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func sampleResult() *domain.Result {
	purity := 0.75
	sil := 0.5
	return &domain.Result{
		Documents: []domain.ResultDocument{
			{
				Index:           0,
				ID:              "2020-01-02_a_b_Doe-v-Acme.pdf",
				DisplayName:     "Doe-v-Acme (2020-01-02)",
				X:               1.5,
				Y:               -2,
				FineCluster:     0,
				FineClusterName: "Scraping",
				MidCluster:      0,
				MidClusterName:  "Data Suits: Privacy and Data Protection",
				CategoryName:    "Privacy and Data Protection",
				QualityTier:     domain.QualityHigh,
				QualityScore:    1,
				DensityCluster:  2,
				NestingPurity:   &purity,
			},
		},
		Meta: domain.ResultMeta{
			RunID:          "run-1",
			TotalDocuments: 1,
			NFine:          1,
			NMid:           1,
			Silhouettes:    domain.Silhouettes{Fine: &sil},
			FineNames:      map[int]string{0: "Scraping"},
			MidNames:       map[int]string{0: "Data Suits: Privacy and Data Protection"},
			Failures: []domain.AnnotationFailure{
				{Level: domain.LevelFine, ClusterID: 3, Operation: "name", Attempts: 5, Reason: "timeout"},
			},
		},
	}
}

func TestResultStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "result.json")
	store := NewResultStore()

	require.NoError(t, store.Save(ctx, path, sampleResult()))

	loaded, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), loaded)
}

func TestResultStore_WireNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, NewResultStore().Save(context.Background(), path, sampleResult()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	doc := raw["documents"].([]any)[0].(map[string]any)
	for _, key := range []string{"fine_cluster_name", "mid_cluster_name", "quality_tier", "is_density_noise", "density_nesting_purity"} {
		assert.Contains(t, doc, key)
	}
	meta := raw["meta"].(map[string]any)
	assert.Contains(t, meta, "annotation_failures")
}

func TestResultStore_LoadErrors(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	_, err := store.Load(ctx, filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	path := writeFile(t, "broken.json", "{")
	_, err = store.Load(ctx, path)
	assert.ErrorIs(t, err, domain.ErrSerialization)
}

func TestResultStore_FailedWriteKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "result.json")
	store := NewResultStore()
	require.NoError(t, store.Save(ctx, path, sampleResult()))

	// NaN cannot be encoded, so nothing reaches the file.
	bad := sampleResult()
	nan := math.NaN()
	bad.Meta.Silhouettes.Fine = &nan
	err := store.Save(ctx, path, bad)
	assert.ErrorIs(t, err, domain.ErrSerialization)

	loaded, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.Meta.RunID)
}

func TestResultStore_FailedReplaceRemovesTemp(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))

	err := NewResultStore().Save(ctx, path, sampleResult())
	assert.ErrorIs(t, err, domain.ErrSerialization)

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestResultStore_ConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	store := NewResultStore()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.Save(context.Background(), path, sampleResult())
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "save %d", i)
	}
	_, err := store.Load(context.Background(), path)
	require.NoError(t, err)

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
