package driving

import (
	"context"

	"github.com/custodia-labs/casemap/internal/core/domain"
)

// ResultService reads persisted results for the CLI, TUI and MCP server.
type ResultService interface {
	// Load reads the result at path.
	Load(ctx context.Context, path string) (*domain.Result, error)

	// Latest reads the output of the most recent completed run.
	// Returns domain.ErrNotFound when no run has completed.
	Latest(ctx context.Context) (*domain.Result, error)
}

// RunHistoryService exposes recorded runs.
type RunHistoryService interface {
	// List returns the most recent runs first.
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*domain.RunRecord, error)

	// Delete removes a run record. The result file is left in place.
	Delete(ctx context.Context, id string) error
}
