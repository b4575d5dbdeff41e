package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHierarchy() *Hierarchy {
	return &Hierarchy{
		Mid: []MidCluster{
			{
				ID:             0,
				Name:           "Chatbot hallucinations: AI in Legal Proceedings",
				Classification: &Classification{Primary: "AI in Legal Proceedings", Confidence: 0.9},
				Fine:           []FineCluster{{ID: 0, MidID: 0}, {ID: 2, MidID: 0}},
			},
			{ID: 1, Name: "Cluster 1", Fine: []FineCluster{{ID: 1, MidID: 1}}},
		},
	}
}

// TestHierarchy_Lookup tests lookups by id
func TestHierarchy_Lookup(t *testing.T) {
	h := sampleHierarchy()

	fine, mid, ok := h.FineByID(2)
	require.True(t, ok)
	assert.Equal(t, 2, fine.ID)
	assert.Equal(t, 0, mid.ID)

	_, _, ok = h.FineByID(9)
	assert.False(t, ok)

	_, ok = h.MidByID(1)
	assert.True(t, ok)
	assert.Equal(t, 3, h.FineCount())

	var order []int
	h.Walk(func(_ *MidCluster, f *FineCluster) { order = append(order, f.ID) })
	assert.Equal(t, []int{0, 2, 1}, order)
}

// TestResult_Annotations tests fallbacks are not carried into a resume
func TestResult_Annotations(t *testing.T) {
	r := &Result{Meta: ResultMeta{
		MidNames:      map[int]string{0: "Chatbot hallucinations: AI in Legal Proceedings", 1: "Cluster 1"},
		MidCategories: map[int]string{0: "AI in Legal Proceedings", 1: DefaultCategoryName},
		FineNames:     map[int]string{0: "Fake citations", 1: "Cluster 1", 2: "Sanctions"},
		Hierarchy:     sampleHierarchy(),
		Failures: []AnnotationFailure{
			{Level: LevelMid, ClusterID: 1, Operation: "classify"},
			{Level: LevelFine, ClusterID: 1, Operation: "name"},
		},
	}}

	ann := r.Annotations()

	assert.Len(t, ann.Mid, 1)
	assert.Equal(t, "AI in Legal Proceedings", ann.Mid[0].Category)
	require.NotNil(t, ann.Mid[0].Classification)
	assert.InDelta(t, 0.9, ann.Mid[0].Classification.Confidence, 1e-12)
	assert.Equal(t, map[int]string{0: "Fake citations", 2: "Sanctions"}, ann.Fine)
	assert.Empty(t, ann.Failures)
}

// TestAnnotation_OK tests the typed outcome
func TestAnnotation_OK(t *testing.T) {
	assert.True(t, Annotation[string]{Value: "x", Attempts: 1}.OK())
	assert.False(t, Annotation[string]{Value: FallbackName(3), Fallback: true}.OK())
	assert.Equal(t, "Cluster 3", FallbackName(3))
}

// TestRunRecord_Duration tests unfinished runs have no duration
func TestRunRecord_Duration(t *testing.T) {
	r := &RunRecord{}
	assert.Zero(t, r.Duration())
}
