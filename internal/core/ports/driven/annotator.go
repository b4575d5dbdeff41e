package driven

import (
	"context"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// Annotator classifies and names clusters from samples of their summaries.
// Both operations may fail; callers retry and fall back per cluster.
type Annotator interface {
	// ClassifyCategory assigns categories of the taxonomy to a mid cluster.
	// Implementations must be conservative and prefer the default category
	// when the samples are ambiguous.
	ClassifyCategory(ctx context.Context, samples []string) (*domain.Classification, error)

	// NameCluster produces a short human-readable label. For mid clusters the
	// name ends with ": <Category>".
	NameCluster(ctx context.Context, samples []string, nc domain.NameContext) (string, error)
}
