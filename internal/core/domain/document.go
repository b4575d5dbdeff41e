package domain

import (
	"fmt"
	"math"
	"regexp"
)

// Document is one embedded court-opinion summary.
// Documents are immutable once loaded; their order defines the index used by
// every label and point slice in a run.
type Document struct {
	// ID is the opaque identifier (usually the source file name).
	ID string

	// Name is the human-readable document name.
	Name string

	// Summary is the text passed to the annotator as a cluster sample.
	Summary string

	// Embedding is the vector produced by the external embedding model.
	Embedding []float32
}

// Point is a document's projection into the low-dimensional space.
type Point []float64

// Corpus is the index-aligned input of a run.
type Corpus struct {
	Documents []Document
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.Documents)
}

// Dimension returns the embedding dimension, or 0 for an empty corpus.
func (c *Corpus) Dimension() int {
	if len(c.Documents) == 0 {
		return 0
	}
	return len(c.Documents[0].Embedding)
}

// Vectors returns the embeddings as float64 rows.
func (c *Corpus) Vectors() [][]float64 {
	out := make([][]float64, len(c.Documents))
	for i := range c.Documents {
		row := make([]float64, len(c.Documents[i].Embedding))
		for j, v := range c.Documents[i].Embedding {
			row[j] = float64(v)
		}
		out[i] = row
	}
	return out
}

// Summaries returns the summaries of the documents at the given indices.
func (c *Corpus) Summaries(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, idx := range indices {
		out = append(out, c.Documents[idx].Summary)
	}
	return out
}

// Validate checks that the corpus is non-empty, that every document has an
// ID and an embedding of the same dimension, and that all values are finite.
func (c *Corpus) Validate() error {
	if len(c.Documents) == 0 {
		return &InputError{Field: "documents", Index: -1, Err: ErrEmptyInput}
	}

	dim := c.Dimension()
	if dim == 0 {
		return &InputError{Field: "embedding", Index: 0, Err: ErrMissingEmbedding}
	}

	seen := make(map[string]int, len(c.Documents))
	for i := range c.Documents {
		doc := &c.Documents[i]
		if doc.ID == "" {
			return &InputError{Field: "id", Index: i, Err: ErrInvalidInput}
		}
		if prev, ok := seen[doc.ID]; ok {
			return &InputError{
				Field: "id",
				Index: i,
				Err:   fmt.Errorf("%w: %q also at index %d", ErrDuplicateID, doc.ID, prev),
			}
		}
		seen[doc.ID] = i

		if len(doc.Embedding) == 0 {
			return &InputError{Field: "embedding", Index: i, Err: ErrMissingEmbedding}
		}
		if len(doc.Embedding) != dim {
			return &InputError{
				Field: "embedding",
				Index: i,
				Err:   fmt.Errorf("%w: dimension %d, expected %d", ErrLengthMismatch, len(doc.Embedding), dim),
			}
		}
		for _, v := range doc.Embedding {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return &InputError{Field: "embedding", Index: i, Err: ErrNonFinite}
			}
		}
	}
	return nil
}

// caseFilePattern matches "2024-05-01_XYZ_v_ABC_Some-Case-Name.pdf".
var caseFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_[^_]+_[^_]+_(.+?)\.pdf$`)

// DisplayName renders court file names as "Some-Case-Name (2024-05-01)".
// Names that do not follow the dated file convention are returned unchanged.
func DisplayName(name string) string {
	m := caseFilePattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return fmt.Sprintf("%s (%s)", m[2], m[1])
}
