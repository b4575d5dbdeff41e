package domain

import "time"

// ResultDocument is one entry of the persisted document list.
type ResultDocument struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Summary     string `json:"summary,omitempty"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Coords Point   `json:"coords"`

	FineCluster     int    `json:"fine_cluster"`
	FineClusterName string `json:"fine_cluster_name"`
	MidCluster      int    `json:"mid_cluster"`
	MidClusterName  string `json:"mid_cluster_name"`
	CategoryID      int    `json:"category_id"`
	CategoryName    string `json:"category_name"`

	QualityTier  QualityTier `json:"quality_tier"`
	QualityScore float64     `json:"quality_score"`

	DensityCluster int  `json:"density_cluster"`
	IsDensityNoise bool `json:"is_density_noise"`

	// NestingPurity is only reported when strict nesting is off.
	NestingPurity *float64 `json:"density_nesting_purity,omitempty"`
}

// Silhouettes holds mean silhouette coefficients of the 2D layout. A nil value
// means the score was not computable (fewer than two clusters).
type Silhouettes struct {
	Fine    *float64 `json:"fine"`
	Mid     *float64 `json:"mid"`
	Density *float64 `json:"density"`
}

// DensityStats summarises the density clusterer output.
type DensityStats struct {
	Clusters     int     `json:"n_clusters"`
	NoisePoints  int     `json:"n_noise"`
	NoisePercent float64 `json:"noise_percent"`
}

// ResultMeta is the meta block of the persisted record.
type ResultMeta struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Fingerprint string    `json:"fingerprint"`

	TotalDocuments int `json:"total_documents"`
	NFine          int `json:"n_fine"`
	NMid           int `json:"n_mid"`

	Density     DensityStats `json:"density"`
	Silhouettes Silhouettes  `json:"silhouettes"`

	FineNames     map[int]string `json:"fine_names"`
	MidNames      map[int]string `json:"mid_names"`
	MidCategories map[int]string `json:"mid_categories"`

	Hierarchy *Hierarchy `json:"hierarchy,omitempty"`

	StrictNesting bool                `json:"strict_nesting"`
	Failures      []AnnotationFailure `json:"annotation_failures,omitempty"`

	// Partial marks a checkpoint written while annotating.
	Partial bool `json:"partial,omitempty"`
}

// Result is the persisted record of a run.
type Result struct {
	Documents []ResultDocument `json:"documents"`
	Meta      ResultMeta       `json:"meta"`
}

// Annotations recovers the annotator output recorded in the result.
// Clusters that fell back are left out so that a resumed run retries them.
func (r *Result) Annotations() *Annotations {
	out := NewAnnotations()
	failed := &Annotations{Failures: r.Meta.Failures}

	for id, name := range r.Meta.MidNames {
		if failed.Failed(LevelMid, id) {
			continue
		}
		ann := MidAnnotation{Name: name, Category: r.Meta.MidCategories[id]}
		if r.Meta.Hierarchy != nil {
			if mid, ok := r.Meta.Hierarchy.MidByID(id); ok {
				ann.Classification = mid.Classification
			}
		}
		out.Mid[id] = ann
	}
	for id, name := range r.Meta.FineNames {
		if failed.Failed(LevelFine, id) {
			continue
		}
		out.Fine[id] = name
	}
	return out
}

// Document returns the document with the given id.
func (r *Result) Document(id string) (*ResultDocument, bool) {
	for i := range r.Documents {
		if r.Documents[i].ID == id {
			return &r.Documents[i], true
		}
	}
	return nil, false
}
