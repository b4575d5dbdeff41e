package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
)

// Ensure ResultService implements the interface.
var _ driving.ResultService = (*ResultService)(nil)

// ResultService reads persisted results.
type ResultService struct {
	results driven.ResultStore
	runs    driven.RunStore
}

// NewResultService creates a result service. Without a run store, Latest
// always returns domain.ErrNotFound.
func NewResultService(results driven.ResultStore, runs driven.RunStore) *ResultService {
	return &ResultService{results: results, runs: runs}
}

// Load reads the result at path.
func (s *ResultService) Load(ctx context.Context, path string) (*domain.Result, error) {
	return s.results.Load(ctx, path)
}

// Latest reads the output of the most recent completed run whose file still
// exists.
func (s *ResultService) Latest(ctx context.Context) (*domain.Result, error) {
	if s.runs == nil {
		return nil, domain.ErrNotFound
	}

	runs, err := s.runs.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for _, run := range runs {
		if run.Status != domain.RunCompleted || run.OutputPath == "" {
			continue
		}
		result, err := s.results.Load(ctx, run.OutputPath)
		if err == nil {
			return result, nil
		}
	}
	return nil, domain.ErrNotFound
}
