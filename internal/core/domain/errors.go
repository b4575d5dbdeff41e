package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Input Errors. These abort a run before any clustering begins.

	// ErrEmptyInput indicates the embedding store holds no documents.
	ErrEmptyInput = errors.New("no documents")

	// ErrMissingEmbedding indicates a document has no embedding vector.
	ErrMissingEmbedding = errors.New("missing embedding")

	// ErrDuplicateID indicates two documents share an identifier.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrLengthMismatch indicates index-aligned arrays disagree in length.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrNonFinite indicates a NaN or infinite value in an input vector.
	ErrNonFinite = errors.New("non-finite value")

	// ErrTooFewPoints indicates fewer points than the reducer neighbourhood.
	ErrTooFewPoints = errors.New("too few points")

	// ErrTooManyClusters indicates K is larger than the number of points.
	ErrTooManyClusters = errors.New("more clusters than points")

	// ErrInvalidSettings indicates a configuration value is out of range.
	ErrInvalidSettings = errors.New("invalid settings")

	// Degenerate Clustering.

	// ErrNotComputable indicates a metric needs at least two clusters.
	// Callers report the metric as undefined rather than failing.
	ErrNotComputable = errors.New("metric not computable")

	// Annotator Errors. These are per cluster and never abort a run.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrAnnotationFailed indicates an annotation exhausted its retries.
	ErrAnnotationFailed = errors.New("annotation failed")

	// ErrMalformedResponse indicates the annotator returned unusable output.
	ErrMalformedResponse = errors.New("malformed annotator response")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Serialisation Errors.

	// ErrSerialization indicates the result record could not be written.
	ErrSerialization = errors.New("serialization failed")
)

// InputError identifies which input failed validation.
type InputError struct {
	// Field names the offending input (e.g. "embedding", "id").
	Field string

	// Index is the document index, or -1 when the error is not per document.
	Index int

	// Err is the underlying sentinel error.
	Err error
}

// Error implements error.
func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid input %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid input %s at document %d: %v", e.Field, e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.Err
}
