package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
// Load and Save copy documents so callers never share vectors with the store.
type EmbeddingStore struct {
	mu   sync.RWMutex
	docs []domain.Document
}

// NewEmbeddingStore creates a store holding a copy of docs.
func NewEmbeddingStore(docs ...domain.Document) *EmbeddingStore {
	return &EmbeddingStore{docs: copyDocuments(docs)}
}

// Load returns a copy of the corpus.
func (s *EmbeddingStore) Load(ctx context.Context) (*domain.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &domain.Corpus{Documents: copyDocuments(s.docs)}, nil
}

// Save replaces the corpus.
func (s *EmbeddingStore) Save(ctx context.Context, corpus *domain.Corpus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if corpus == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = copyDocuments(corpus.Documents)
	return nil
}

// Location returns ":memory:".
func (s *EmbeddingStore) Location() string {
	return ":memory:"
}

func copyDocuments(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		out[i] = d
		if d.Embedding != nil {
			out[i].Embedding = append([]float32(nil), d.Embedding...)
		}
	}
	return out
}
