package domain

import "fmt"

// Annotation is the typed outcome of an annotator call after retries.
// Value is always usable: on failure it holds the deterministic fallback.
type Annotation[T any] struct {
	// Value is the annotator result or the fallback.
	Value T

	// Attempts is the number of calls made.
	Attempts int

	// Err is the last error when every attempt failed.
	Err error

	// Fallback reports whether Value is the fallback.
	Fallback bool
}

// OK returns true when the annotator produced Value.
func (a Annotation[T]) OK() bool {
	return !a.Fallback
}

// NameContext is the extra information passed when naming a cluster.
type NameContext struct {
	// Level is the cluster level being named.
	Level ClusterLevel

	// ClusterID is the id at that level.
	ClusterID int

	// Category is the already assigned category (mid clusters).
	Category string

	// Tier is the quality tier (fine clusters).
	Tier QualityTier

	// Size is the number of documents in the cluster.
	Size int
}

// FallbackName is the placeholder name of a cluster the annotator could not
// name.
func FallbackName(id int) string {
	return fmt.Sprintf("Cluster %d", id)
}

// MidAnnotation is what the annotator contributes to a mid cluster.
type MidAnnotation struct {
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Classification *Classification `json:"classification,omitempty"`
}

// AnnotationFailure records a cluster whose annotation fell back.
type AnnotationFailure struct {
	Level     ClusterLevel `json:"level"`
	ClusterID int          `json:"cluster_id"`
	Operation string       `json:"operation"`
	Attempts  int          `json:"attempts"`
	Reason    string       `json:"reason"`
}

// Annotations collects the annotator output of a run, keyed by cluster id.
type Annotations struct {
	Mid      map[int]MidAnnotation
	Fine     map[int]string
	Failures []AnnotationFailure
}

// NewAnnotations returns empty annotations.
func NewAnnotations() *Annotations {
	return &Annotations{
		Mid:  make(map[int]MidAnnotation),
		Fine: make(map[int]string),
	}
}

// Failed reports whether the cluster fell back.
func (a *Annotations) Failed(level ClusterLevel, id int) bool {
	for _, f := range a.Failures {
		if f.Level == level && f.ClusterID == id {
			return true
		}
	}
	return false
}
