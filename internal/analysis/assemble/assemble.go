// Package assemble merges per-document assignments, names, categories and
// quality into the persisted result record.
package assemble

import (
	"fmt"
	"time"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Input gathers everything a result is assembled from.
type Input struct {
	RunID       string
	CreatedAt   time.Time
	Fingerprint string

	Corpus    *domain.Corpus
	Points    []domain.Point
	Labels    *domain.Labels
	Hierarchy *domain.Hierarchy

	Silhouettes domain.Silhouettes

	// Purity is the density nesting purity per density label; nil under
	// strict nesting.
	Purity        map[int]float64
	StrictNesting bool

	Failures []domain.AnnotationFailure
}

// Assemble builds the result record. It fails when any per-document slice is
// not aligned with the corpus, so no document is dropped or duplicated.
func Assemble(in Input) (*domain.Result, error) {
	n := in.Corpus.Len()
	for _, c := range []struct {
		name string
		len  int
	}{
		{"points", len(in.Points)},
		{"fine labels", len(in.Labels.Fine)},
		{"mid labels", len(in.Labels.Mid)},
		{"density labels", len(in.Labels.Density)},
	} {
		if c.len != n {
			return nil, fmt.Errorf("%w: %d %s for %d documents", domain.ErrLengthMismatch, c.len, c.name, n)
		}
	}

	docs := make([]domain.ResultDocument, n)
	for i, doc := range in.Corpus.Documents {
		fine, mid, ok := in.Hierarchy.FineByID(in.Labels.Fine[i])
		if !ok {
			return nil, fmt.Errorf("%w: fine cluster %d missing from hierarchy", domain.ErrInvalidInput, in.Labels.Fine[i])
		}

		p := in.Points[i]
		rd := domain.ResultDocument{
			Index:           i,
			ID:              doc.ID,
			Name:            doc.Name,
			DisplayName:     domain.DisplayName(nameOrID(doc)),
			Summary:         doc.Summary,
			X:               coord(p, 0),
			Y:               coord(p, 1),
			Coords:          p,
			FineCluster:     fine.ID,
			FineClusterName: fine.Name,
			MidCluster:      mid.ID,
			MidClusterName:  mid.Name,
			CategoryID:      mid.Category.ID,
			CategoryName:    mid.Category.Name,
			QualityTier:     fine.Quality.Tier,
			QualityScore:    fine.Quality.Score,
			DensityCluster:  in.Labels.Density[i],
			IsDensityNoise:  in.Labels.Density[i] == domain.Noise,
		}
		if !in.StrictNesting && in.Purity != nil && !rd.IsDensityNoise {
			if purity, ok := in.Purity[rd.DensityCluster]; ok {
				rd.NestingPurity = &purity
			}
		}
		docs[i] = rd
	}

	noise := domain.CountNoise(in.Labels.Density)
	meta := domain.ResultMeta{
		RunID:          in.RunID,
		CreatedAt:      in.CreatedAt,
		Fingerprint:    in.Fingerprint,
		TotalDocuments: n,
		NFine:          in.Labels.NFine,
		NMid:           in.Labels.NMid,
		Density: domain.DensityStats{
			Clusters:     domain.CountClusters(in.Labels.Density),
			NoisePoints:  noise,
			NoisePercent: 100 * float64(noise) / float64(max(n, 1)),
		},
		Silhouettes:   in.Silhouettes,
		StrictNesting: in.StrictNesting,
		Failures:      in.Failures,
		Hierarchy:     in.Hierarchy,
	}
	meta.FineNames, meta.MidNames, meta.MidCategories = Dictionaries(in.Hierarchy)

	return &domain.Result{Documents: docs, Meta: meta}, nil
}

// Dictionaries returns the fine names, mid names and mid category names
// keyed by cluster id.
func Dictionaries(h *domain.Hierarchy) (fine, mid, categories map[int]string) {
	fine = make(map[int]string)
	mid = make(map[int]string, len(h.Mid))
	categories = make(map[int]string, len(h.Mid))
	for _, m := range h.Mid {
		mid[m.ID] = m.Name
		categories[m.ID] = m.Category.Name
		for _, f := range m.Fine {
			fine[f.ID] = f.Name
		}
	}
	return fine, mid, categories
}

func nameOrID(doc domain.Document) string {
	if doc.Name != "" {
		return doc.Name
	}
	return doc.ID
}

func coord(p domain.Point, i int) float64 {
	if i < len(p) {
		return p[i]
	}
	return 0
}
