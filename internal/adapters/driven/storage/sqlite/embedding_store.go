package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// embeddingStore implements driven.EmbeddingStore for one named corpus.
type embeddingStore struct {
	store  *Store
	corpus string
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// Load reads the corpus in insertion order. An unknown corpus is ErrNotFound.
func (s *embeddingStore) Load(ctx context.Context) (*domain.Corpus, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, summary, embedding
		FROM documents WHERE corpus = ? ORDER BY position
	`, s.corpus)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	corpus := &domain.Corpus{}
	for rows.Next() {
		var doc domain.Document
		var name, summary sql.NullString
		var blob []byte
		if err := rows.Scan(&doc.ID, &name, &summary, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Name = name.String
		doc.Summary = summary.String
		doc.Embedding = bytesToFloat32Slice(blob)
		corpus.Documents = append(corpus.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	if corpus.Len() == 0 {
		return nil, fmt.Errorf("%w: corpus %q", domain.ErrNotFound, s.corpus)
	}
	return corpus, nil
}

// Save replaces the corpus in a single transaction.
func (s *embeddingStore) Save(ctx context.Context, corpus *domain.Corpus) error {
	if corpus == nil {
		return fmt.Errorf("%w: nil corpus", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE corpus = ?`, s.corpus); err != nil {
		return fmt.Errorf("clearing corpus: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (corpus, position, id, name, summary, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range corpus.Documents {
		_, err := stmt.ExecContext(ctx, s.corpus, i, doc.ID,
			nullString(doc.Name), nullString(doc.Summary), float32SliceToBytes(doc.Embedding))
		if err != nil {
			return fmt.Errorf("inserting document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing corpus: %w", err)
	}
	return nil
}

// Location returns the database path and corpus name.
func (s *embeddingStore) Location() string {
	return s.store.path + "#" + s.corpus
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
