// Package domain defines the core entities of the casemap pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an embedded summary with its identifier and name
//   - Hierarchy: mid clusters owning fine clusters, each with quality and names
//   - Taxonomy: the closed set of categories assigned to mid clusters
//   - Result: the persisted record of a pipeline run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
