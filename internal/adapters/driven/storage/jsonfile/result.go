package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure ResultStore implements the interface.
var _ driven.ResultStore = (*ResultStore)(nil)

// ResultStore reads and writes result records.
type ResultStore struct{}

// NewResultStore creates a result store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Save writes result to path atomically.
func (s *ResultStore) Save(ctx context.Context, path string, result *domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%w: nil result", domain.ErrSerialization)
	}
	if err := writeJSON(path, result); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return nil
}

// Load reads the result at path.
func (s *ResultStore) Load(ctx context.Context, path string) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("result %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read result: %w", err)
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w: %w", path, domain.ErrSerialization, err)
	}
	return &result, nil
}
