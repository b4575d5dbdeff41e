package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure ResultStore implements the interface.
var _ driven.ResultStore = (*ResultStore)(nil)

// ResultStore keeps results keyed by path. Results are stored as their JSON
// encoding so a loaded result matches what a file store would return.
type ResultStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	saves int
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{files: make(map[string][]byte)}
}

// Save encodes and stores the result under path.
func (s *ResultStore) Save(ctx context.Context, path string, result *domain.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	s.saves++
	return nil
}

// Load decodes the result stored under path.
func (s *ResultStore) Load(ctx context.Context, path string) (*domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.files[path]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return &result, nil
}

// Saves returns how many times Save succeeded, checkpoints included.
func (s *ResultStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
