package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/custodia-labs/casemap/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/casemap/internal/core/domain"
)

// writeSummary prints the headline numbers of a result. With tree set it
// also lists the hierarchy, one line per cluster.
func writeSummary(w io.Writer, result *domain.Result, tree bool) {
	s := styles.DefaultStyles()
	meta := result.Meta

	fmt.Fprintln(w, s.Title.Render("Run "+meta.RunID))
	if !meta.CreatedAt.IsZero() {
		fmt.Fprintln(w, s.Muted.Render(meta.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	fmt.Fprintf(w, "Documents:        %d\n", meta.TotalDocuments)
	fmt.Fprintf(w, "Clusters:         %d mid, %d fine\n", meta.NMid, meta.NFine)
	fmt.Fprintf(w, "Density clusters: %d (%d noise points, %.1f%%)\n",
		meta.Density.Clusters, meta.Density.NoisePoints, meta.Density.NoisePercent)
	fmt.Fprintf(w, "Silhouette:       fine %s, mid %s, density %s\n",
		formatScore(meta.Silhouettes.Fine), formatScore(meta.Silhouettes.Mid), formatScore(meta.Silhouettes.Density))
	if meta.Partial {
		fmt.Fprintln(w, s.Error.Render("Partial result: annotation did not finish"))
	}
	if n := len(meta.Failures); n > 0 {
		fmt.Fprintln(w, s.Error.Render(fmt.Sprintf("%d clusters kept fallback values", n)))
	}

	if meta.Hierarchy == nil {
		return
	}
	writeDistribution(w, s, meta.Hierarchy.Distribution)

	if !tree {
		return
	}
	fmt.Fprintln(w)
	for i := range meta.Hierarchy.Mid {
		mid := &meta.Hierarchy.Mid[i]
		fmt.Fprintf(w, "%s %s %s\n",
			s.Title.Render(fmt.Sprintf("[%d] %s", mid.ID, mid.Name)),
			s.Category.Render(mid.Category.Name),
			s.Muted.Render(fmt.Sprintf("(%d docs)", mid.Size)))
		for j := range mid.Fine {
			fine := &mid.Fine[j]
			fmt.Fprintf(w, "    %s %s %s\n",
				fmt.Sprintf("[%d] %s", fine.ID, fine.Name),
				s.Tier(fine.Quality.Tier).Render(fine.Quality.Tier.String()),
				s.Muted.Render(fmt.Sprintf("(%d docs)", fine.Size)))
		}
	}
}

func writeDistribution(w io.Writer, s *styles.Styles, dist domain.Distribution) {
	if len(dist.ByTier) > 0 {
		parts := make([]string, 0, len(dist.ByTier))
		for _, tier := range domain.AllQualityTiers() {
			parts = append(parts, s.Tier(tier).Render(fmt.Sprintf("%s %d", tier, dist.ByTier[tier])))
		}
		fmt.Fprintf(w, "Quality:          %s\n", strings.Join(parts, ", "))
	}
	if len(dist.ByCategory) == 0 {
		return
	}

	names := make([]string, 0, len(dist.ByCategory))
	for name := range dist.ByCategory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := dist.ByCategory[names[i]], dist.ByCategory[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	fmt.Fprintln(w, "Categories:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-32s %d\n", name, dist.ByCategory[name])
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}
