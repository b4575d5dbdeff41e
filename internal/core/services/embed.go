package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
	"github.com/custodia-labs/casemap/internal/core/ports/driving"
	"github.com/custodia-labs/casemap/internal/logger"
)

// Ensure EmbedService implements the interface.
var _ driving.EmbedService = (*EmbedService)(nil)

// embedBatchSize bounds the texts sent in one EmbedBatch call.
const embedBatchSize = 32

// EmbedService fills missing embeddings of a corpus from its summaries.
type EmbedService struct {
	corpus    driven.EmbeddingStore
	target    driven.EmbeddingStore
	embedding driven.EmbeddingService
}

// NewEmbedService creates an embed service that reads and writes corpus.
func NewEmbedService(corpus driven.EmbeddingStore, embedding driven.EmbeddingService) *EmbedService {
	return &EmbedService{corpus: corpus, target: corpus, embedding: embedding}
}

// WithTarget writes the filled corpus to another store.
func (s *EmbedService) WithTarget(target driven.EmbeddingStore) *EmbedService {
	s.target = target
	return s
}

// Fill embeds documents without vectors (all documents when force is set)
// and saves the corpus. Returns the number of documents embedded.
func (s *EmbedService) Fill(ctx context.Context, force bool) (int, error) {
	if s.embedding == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	corpus, err := s.corpus.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load corpus from %s: %w", s.corpus.Location(), err)
	}

	var pending []int
	for i, doc := range corpus.Documents {
		if !force && len(doc.Embedding) > 0 {
			continue
		}
		if doc.Summary == "" {
			return 0, &domain.InputError{Field: "summary", Index: i, Err: domain.ErrInvalidInput}
		}
		pending = append(pending, i)
	}

	logger.Info("embedding %d of %d documents with %s", len(pending), corpus.Len(), s.embedding.ModelName())

	for start := 0; start < len(pending); start += embedBatchSize {
		batch := pending[start:min(start+embedBatchSize, len(pending))]
		texts := corpus.Summaries(batch)

		vectors, err := s.embedding.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed documents %d-%d: %w", batch[0], batch[len(batch)-1], err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("%w: %d embeddings for %d documents", domain.ErrLengthMismatch, len(vectors), len(batch))
		}
		for j, idx := range batch {
			corpus.Documents[idx].Embedding = vectors[j]
		}
		logger.Debug("embedded %d/%d", start+len(batch), len(pending))
	}

	if len(pending) == 0 && s.target == s.corpus {
		return 0, nil
	}
	if err := s.target.Save(ctx, corpus); err != nil {
		return 0, fmt.Errorf("save corpus to %s: %w", s.target.Location(), err)
	}
	return len(pending), nil
}
