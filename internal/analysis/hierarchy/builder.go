// Package hierarchy assembles the typed mid -> fine tree of a run.
package hierarchy

import (
	"fmt"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Build creates the tree from the partition labels and fine cluster quality.
// Every cluster starts with its fallback name and the taxonomy's default
// category; Apply fills in the annotator output.
func Build(labels *domain.Labels, quality []domain.ClusterQuality, taxonomy *domain.Taxonomy) (*domain.Hierarchy, error) {
	if len(quality) != labels.NFine {
		return nil, fmt.Errorf("%w: %d quality records for %d fine clusters",
			domain.ErrLengthMismatch, len(quality), labels.NFine)
	}
	if len(labels.FineToMid) != labels.NFine {
		return nil, fmt.Errorf("%w: fine to mid map has %d entries for %d fine clusters",
			domain.ErrLengthMismatch, len(labels.FineToMid), labels.NFine)
	}

	fineMembers := domain.Members(labels.Fine, labels.NFine)
	h := &domain.Hierarchy{Mid: make([]domain.MidCluster, labels.NMid)}
	for m := range h.Mid {
		h.Mid[m] = domain.MidCluster{
			ID:       m,
			Name:     domain.FallbackName(m),
			Category: taxonomy.Default(),
		}
	}

	for f := 0; f < labels.NFine; f++ {
		m := labels.FineToMid[f]
		if m < 0 || m >= labels.NMid {
			return nil, fmt.Errorf("%w: fine cluster %d maps to mid %d", domain.ErrInvalidInput, f, m)
		}
		var centroid domain.Point
		if f < len(labels.FineCentroids) {
			centroid = labels.FineCentroids[f]
		}
		mid := &h.Mid[m]
		mid.Fine = append(mid.Fine, domain.FineCluster{
			ID:       f,
			MidID:    m,
			Name:     domain.FallbackName(f),
			Size:     len(fineMembers[f]),
			Quality:  quality[f],
			Centroid: centroid,
			Members:  fineMembers[f],
		})
		mid.Size += len(fineMembers[f])
	}

	h.Distribution = distribution(h)
	return h, nil
}

// Apply copies annotator output into the tree. Missing clusters keep their
// fallback values; category names are resolved against the taxonomy, so an
// unknown name becomes the default category. Empty names are ignored.
func Apply(h *domain.Hierarchy, ann *domain.Annotations, taxonomy *domain.Taxonomy) {
	for i := range h.Mid {
		mid := &h.Mid[i]
		if a, ok := ann.Mid[mid.ID]; ok {
			if a.Name != "" {
				mid.Name = a.Name
			}
			mid.Category = taxonomy.Resolve(a.Category)
			mid.Classification = a.Classification
		}
		for j := range mid.Fine {
			fine := &mid.Fine[j]
			if name, ok := ann.Fine[fine.ID]; ok && name != "" {
				fine.Name = name
			}
		}
	}
	h.Distribution = distribution(h)
}

// distribution counts documents per category, fine and mid cluster, and fine
// clusters per quality tier.
func distribution(h *domain.Hierarchy) domain.Distribution {
	d := domain.Distribution{
		ByCategory: make(map[string]int),
		ByFine:     make(map[int]int),
		ByMid:      make(map[int]int),
		ByTier:     make(map[domain.QualityTier]int),
	}
	h.Walk(func(_ *domain.MidCluster, fine *domain.FineCluster) {
		d.ByFine[fine.ID] = fine.Size
		d.ByTier[fine.Quality.Tier]++
	})
	for _, mid := range h.Mid {
		d.ByMid[mid.ID] = mid.Size
		d.ByCategory[mid.Category.Name] += mid.Size
	}
	return d
}
