package driving

import (
	"context"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// RunRequest describes one pipeline run.
type RunRequest struct {
	// OutputPath is where the result record is written. A previous file at
	// this path is the resume source of the annotation stage.
	OutputPath string

	// Settings is the explicit configuration of the run.
	Settings domain.PipelineSettings
}

// PipelineService runs the clustering pipeline end to end.
type PipelineService interface {
	// Run executes every stage and persists the result.
	// Input errors abort before clustering; annotator errors never abort.
	Run(ctx context.Context, req RunRequest) (*domain.Result, error)
}

// EmbedService fills missing embeddings of the configured corpus.
type EmbedService interface {
	// Fill embeds documents without vectors (all documents when force is set)
	// and saves the corpus. Returns the number of documents embedded.
	Fill(ctx context.Context, force bool) (int, error)
}
