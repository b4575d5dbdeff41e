package services

import (
	"context"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// Ensure RunHistoryService implements the interface.
var _ driving.RunHistoryService = (*RunHistoryService)(nil)

// RunHistoryService exposes recorded runs.
type RunHistoryService struct {
	runs driven.RunStore
}

// NewRunHistoryService creates a run history service.
func NewRunHistoryService(runs driven.RunStore) *RunHistoryService {
	return &RunHistoryService{runs: runs}
}

// List returns the most recent runs first.
func (s *RunHistoryService) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	return s.runs.ListRuns(ctx, limit)
}

// Get retrieves a run by ID.
func (s *RunHistoryService) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	return s.runs.GetRun(ctx, id)
}

// Delete removes a run record. The result file is left in place.
func (s *RunHistoryService) Delete(ctx context.Context, id string) error {
	return s.runs.DeleteRun(ctx, id)
}
