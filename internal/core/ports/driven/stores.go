package driven

import (
	"context"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// EmbeddingStore holds the corpus of a run: one vector per document plus the
// index-aligned names and summaries.
type EmbeddingStore interface {
	// Load reads the corpus. Documents without embeddings are returned as is;
	// validation is the caller's concern.
	Load(ctx context.Context) (*domain.Corpus, error)

	// Save writes the corpus back, replacing the previous content.
	Save(ctx context.Context, corpus *domain.Corpus) error

	// Location describes where the corpus lives (a path or DSN).
	Location() string
}

// ResultStore persists result records.
type ResultStore interface {
	// Save writes the result to path. A failed write leaves any previous
	// file at path untouched.
	Save(ctx context.Context, path string, result *domain.Result) error

	// Load reads a result from path.
	// Returns domain.ErrNotFound if no file exists.
	Load(ctx context.Context, path string) (*domain.Result, error)
}

// RunStore persists the run history.
type RunStore interface {
	// SaveRun inserts or updates a run record.
	SaveRun(ctx context.Context, run *domain.RunRecord) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*domain.RunRecord, error)

	// ListRuns returns the most recent runs first. A limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// DeleteRun removes a run record.
	DeleteRun(ctx context.Context, id string) error
}

// TaxonomyStore provides the closed category set.
type TaxonomyStore interface {
	// Load returns the taxonomy, or the built-in one when no file is configured.
	Load() (*domain.Taxonomy, error)
}
