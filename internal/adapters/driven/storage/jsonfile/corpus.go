package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore reads a corpus from a JSON file holding either an array of
// documents or an object with a "documents" array:
//
//	[{"id": "...", "name": "...", "summary": "...", "embedding": [0.1, ...]}]
//
// A document without an id takes its name, then its position.
type EmbeddingStore struct {
	path string
}

type fileDocument struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type fileCorpus struct {
	Documents []fileDocument `json:"documents"`
}

// NewEmbeddingStore creates a store for path.
func NewEmbeddingStore(path string) *EmbeddingStore {
	return &EmbeddingStore{path: path}
}

// Load reads and decodes the corpus file.
func (s *EmbeddingStore) Load(ctx context.Context) (*domain.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("corpus %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, &domain.InputError{Field: "corpus " + s.path, Index: -1, Err: fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)}
	}

	corpus := &domain.Corpus{Documents: make([]domain.Document, len(docs))}
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = d.Name
		}
		if id == "" {
			id = strconv.Itoa(i)
		}
		corpus.Documents[i] = domain.Document{
			ID:        id,
			Name:      d.Name,
			Summary:   d.Summary,
			Embedding: d.Embedding,
		}
	}
	return corpus, nil
}

func decodeDocuments(data []byte) ([]fileDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped fileCorpus
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		return wrapped.Documents, nil
	}
	var docs []fileDocument
	if err := json.Unmarshal(trimmed, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Save writes the corpus as a JSON array.
func (s *EmbeddingStore) Save(ctx context.Context, corpus *domain.Corpus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if corpus == nil {
		return domain.ErrInvalidInput
	}

	docs := make([]fileDocument, len(corpus.Documents))
	for i, d := range corpus.Documents {
		docs[i] = fileDocument{
			ID:        d.ID,
			Name:      d.Name,
			Summary:   d.Summary,
			Embedding: d.Embedding,
		}
	}
	if err := writeJSON(s.path, docs); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return nil
}

// Location returns the file path.
func (s *EmbeddingStore) Location() string {
	return s.path
}
